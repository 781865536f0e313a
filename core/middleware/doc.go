// Package middleware groups the Fiber middleware mounted by the start command.
//
// The subpackages are registered in order: rayid tags every request with an
// X-Ray-ID that handlers pick up through logger.WithRayID, then auth rejects
// requests without the configured API key. An empty key leaves the read-only
// API open. The swagger route is mounted between the two and stays public.
package middleware
