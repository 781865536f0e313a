package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Kind classifies the result of a fetch.
type Kind int

const (
	// Found means the body was retrieved.
	Found Kind = iota
	// Absent means the source reported the page does not exist.
	Absent
	// Failure means the retry budget was exhausted on transient errors.
	Failure
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Absent:
		return "absent"
	default:
		return "failure"
	}
}

// ErrUnexpectedStatus is wrapped by Outcome.Err when the last attempt got a
// status that is neither 2xx nor 404/410.
var ErrUnexpectedStatus = errors.New("fetch: unexpected status")

// Outcome is the classified result of Fetch.
type Outcome struct {
	Kind       Kind
	Content    []byte
	StatusCode int
	Attempts   int
	// Err holds the last transient error of a Failure.
	Err error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithBackoff replaces the linear retry policy.
func WithBackoff(b Backoff) Option {
	return func(f *Fetcher) { f.backoff = b }
}

// WithSleeper replaces the real timer.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleeper = s }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// Fetcher performs paced, retried GET requests.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	backoff Backoff
	sleeper Sleeper
	logger  *zap.Logger
}

// New creates a fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:     cfg,
		client:  &http.Client{},
		backoff: LinearBackoff(cfg.RetryBase()),
		sleeper: RealSleeper{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url and classifies the result. The inter-request delay is
// applied before returning, whatever the outcome.
func (f *Fetcher) Fetch(ctx context.Context, url string) Outcome {
	out := f.attempt(ctx, url)
	if err := f.sleeper.Sleep(ctx, f.cfg.RequestDelay()); err != nil {
		f.logger.Debug("Request delay interrupted", zap.Error(err))
	}
	return out
}

func (f *Fetcher) attempt(ctx context.Context, url string) Outcome {
	budget := f.cfg.Attempts()
	var out Outcome

	for attempt := 1; attempt <= budget; attempt++ {
		out.Attempts = attempt
		status, body, err := f.do(ctx, url)
		out.StatusCode = status

		switch {
		case err == nil && status >= 200 && status < 300:
			out.Kind = Found
			out.Content = body
			out.Err = nil
			return out
		case err == nil && (status == http.StatusNotFound || status == http.StatusGone):
			out.Kind = Absent
			out.Err = nil
			return out
		case err == nil:
			err = fmt.Errorf("%w %d", ErrUnexpectedStatus, status)
		}
		out.Err = err

		if attempt == budget {
			break
		}
		wait := f.backoff(attempt)
		f.logger.Debug("Retrying request",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if serr := f.sleeper.Sleep(ctx, wait); serr != nil {
			out.Err = fmt.Errorf("retry aborted: %w", errors.Join(err, serr))
			break
		}
	}

	out.Kind = Failure
	out.Content = nil
	return out
}

// do runs one attempt under its own timeout. The parent's cancellation is
// detached so an interrupt never cuts a request short.
func (f *Fetcher) do(ctx context.Context, url string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	if f.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}
