// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber application; this package only defines the
// listen port, the optional API key and the timeouts, embedded by core/config.
package server
