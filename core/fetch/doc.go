// Package fetch retrieves one page per ID and classifies the result.
//
// A Fetch call never returns a raw transport error. Every request ends in one of
// three outcomes:
//
//   - Found: the source answered 2xx and the body was read completely.
//   - Absent: the source answered 404 or 410. This is authoritative and not retried.
//   - Failure: every attempt hit a transient error (timeout, connection reset,
//     5xx, unexpected status, short body). The last error is kept in Outcome.Err.
//
// # Pacing
//
// Retries wait according to a Backoff policy. After every outcome the fetcher
// waits for the configured request delay so the source is never hit faster than
// one request per delay. All waiting goes through a Sleeper so tests can run
// without real time passing.
//
// # Cancellation
//
// The caller's context only interrupts backoff waits and the inter-request delay.
// An in-flight request runs to completion under its own timeout.
//
// # Usage
//
//	f := fetch.New(cfg.Fetch, fetch.WithLogger(logg))
//	out := f.Fetch(ctx, "https://example.org/desc/42/")
//	switch out.Kind {
//	case fetch.Found:
//	    parse(out.Content)
//	case fetch.Absent:
//	    retract()
//	}
package fetch
