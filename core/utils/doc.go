// Package utils provides common utility functions for the manhole tracker.
// It includes loose type conversion for values decoded from hand-edited JSON files
// and the atomic file replacement used by every writer in the repository.
package utils
