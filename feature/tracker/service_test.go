package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"manhole-tracker/core/dataset"
	"manhole-tracker/core/fetch"
	"manhole-tracker/core/record"
	"manhole-tracker/core/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pageSource reads pages of the form "title" and treats "?" as unparseable.
type pageSource struct{}

func (pageSource) Name() string         { return "pages" }
func (pageSource) URL(id int) string    { return "test://pages/" + strconv.Itoa(id) }
func (pageSource) CoreFields() []string { return []string{"title", "address", "lat", "lng"} }

func (pageSource) Parse(id string, content []byte) (record.Candidate, error) {
	if string(content) == "?" {
		return record.Candidate{}, scan.ErrNoRecord
	}
	cand := record.NewCandidate(id)
	title, address, _ := strings.Cut(string(content), "|")
	cand.Set(record.FieldTitle, title)
	if address != "" {
		cand.Set(record.FieldPrefecture, "東京都")
		cand.Set(record.FieldCity, "千代田区")
		cand.Set(record.FieldAddress, address)
	}
	cand.MarkUnobserved(record.FieldLat, record.FieldLng)
	return cand, nil
}

// siteFetcher serves pages by URL; unknown URLs are 404s.
type siteFetcher struct {
	mu      sync.Mutex
	pages   map[string]fetch.Outcome
	fetched []string
	onFetch func(url string)
}

func newSite(pages map[int]string) *siteFetcher {
	f := &siteFetcher{pages: make(map[string]fetch.Outcome)}
	for id, body := range pages {
		f.set(id, body)
	}
	return f
}

func (f *siteFetcher) set(id int, body string) {
	f.pages[pageSource{}.URL(id)] = fetch.Outcome{Kind: fetch.Found, StatusCode: 200, Content: []byte(body), Attempts: 1}
}

func (f *siteFetcher) fail(id int) {
	f.pages[pageSource{}.URL(id)] = fetch.Outcome{Kind: fetch.Failure, StatusCode: 503, Attempts: 3, Err: fetch.ErrUnexpectedStatus}
}

func (f *siteFetcher) remove(id int) {
	delete(f.pages, pageSource{}.URL(id))
}

func (f *siteFetcher) Fetch(_ context.Context, url string) fetch.Outcome {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	out, ok := f.pages[url]
	f.mu.Unlock()
	if f.onFetch != nil {
		f.onFetch(url)
	}
	if !ok {
		return fetch.Outcome{Kind: fetch.Absent, StatusCode: 404, Attempts: 1}
	}
	return out
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestService(t *testing.T, site *siteFetcher, opts ...Option) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.ndjson")
	clock := &testClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithSource(pageSource{}), WithClock(clock.Now)}, opts...)
	svc := NewService(dataset.Config{OutputPath: path, Format: "ndjson"}, site, zap.NewNop(), opts...)
	return svc, path
}

func window(lo, hi int) ScanOptions {
	return ScanOptions{Config: scan.Config{Source: "pages", Min: lo, Max: hi}}
}

func loadDataset(t *testing.T, path string) *record.Dataset {
	t.Helper()
	ds, _, err := dataset.Load(path, nil)
	require.NoError(t, err)
	return ds
}

func TestScan_FirstPassAddsRecords(t *testing.T) {
	site := newSite(map[int]string{1: "Alpha", 2: "Beta"})
	svc, path := newTestService(t, site)

	summary, err := svc.Scan(context.Background(), window(1, 3))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, summary.Added)
	assert.Empty(t, summary.Removed)
	assert.Empty(t, summary.Diff.Changed)
	assert.Empty(t, summary.Resurrected)
	assert.Equal(t, 3, summary.Report.Visited)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 2, summary.Active)
	assert.True(t, summary.HasChanges())
	assert.NotEmpty(t, summary.RunID)
	assert.True(t, summary.Load.Missing)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	ds := loadDataset(t, path)
	require.Equal(t, 2, ds.Len())
	r, ok := ds.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Alpha", r.StringField(record.FieldTitle))
	assert.Equal(t, record.StatusActive, r.Status)
}

func TestScan_SecondPassProducesDiff(t *testing.T) {
	site := newSite(map[int]string{1: "Alpha", 2: "Beta", 3: "Gamma"})
	svc, path := newTestService(t, site)

	_, err := svc.Scan(context.Background(), window(1, 4))
	require.NoError(t, err)

	site.set(1, "Alpha Renamed")
	site.remove(2)
	site.set(4, "Delta")
	summary, err := svc.Scan(context.Background(), window(1, 4))
	require.NoError(t, err)

	assert.Equal(t, []string{"4"}, summary.Added)
	assert.Equal(t, []string{"2"}, summary.Removed)
	assert.Equal(t, map[string][]string{"1": {"title"}}, summary.Diff.Changed)
	assert.Empty(t, summary.Resurrected)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 3, summary.Active)

	ds := loadDataset(t, path)
	removed, _ := ds.Get("2")
	assert.Equal(t, record.StatusDeleted, removed.Status)
	assert.Equal(t, "Beta", removed.StringField(record.FieldTitle))

	site.set(2, "Beta")
	summary, err = svc.Scan(context.Background(), window(1, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, summary.Resurrected)
	assert.Empty(t, summary.Added)
}

func TestScan_LegacyZeroPaddedIDIsMatched(t *testing.T) {
	site := newSite(map[int]string{7: "Seven"})
	svc, path := newTestService(t, site)
	legacy := `{"id":"007","title":"Seven","first_seen":"2024-01-01T00:00:00Z","added_at":"2024-01-01T00:00:00Z","last_updated":"2024-01-01T00:00:00Z","status":"active"}`
	require.NoError(t, os.WriteFile(path, []byte(legacy+"\n"), 0o644))

	summary, err := svc.Scan(context.Background(), window(7, 7))
	require.NoError(t, err)
	assert.Empty(t, summary.Added)
	assert.False(t, summary.HasChanges())

	ds := loadDataset(t, path)
	assert.Equal(t, 1, ds.Len())
	assert.True(t, ds.Has("7"))

	r, err := svc.Record(context.Background(), "007")
	require.NoError(t, err)
	assert.Equal(t, "7", r.ID)
}

func TestScan_UnchangedPassIsIdempotent(t *testing.T) {
	site := newSite(map[int]string{1: "Alpha", 3: "Gamma"})
	svc, path := newTestService(t, site)

	_, err := svc.Scan(context.Background(), window(1, 3))
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	summary, err := svc.Scan(context.Background(), window(1, 3))
	require.NoError(t, err)
	assert.False(t, summary.HasChanges())

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestScan_FailuresAndUnparsedAreSoft(t *testing.T) {
	site := newSite(map[int]string{1: "Alpha", 2: "Beta"})
	svc, path := newTestService(t, site)
	_, err := svc.Scan(context.Background(), window(1, 2))
	require.NoError(t, err)

	site.fail(1)
	site.set(2, "?")
	summary, err := svc.Scan(context.Background(), window(1, 2))
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, summary.Skipped)
	assert.Equal(t, []string{"2"}, summary.NeedsReview)
	assert.False(t, summary.HasChanges())

	ds := loadDataset(t, path)
	assert.Equal(t, 2, ds.Count(record.StatusActive))
}

func TestScan_ResumeStartsAfterHighestID(t *testing.T) {
	site := newSite(map[int]string{1: "Alpha", 2: "Beta", 5: "Epsilon"})
	svc, _ := newTestService(t, site)
	_, err := svc.Scan(context.Background(), window(1, 2))
	require.NoError(t, err)

	opts := window(1, 0)
	opts.Resume = true
	opts.Lookahead = 4
	summary, err := svc.Scan(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, scan.Window{Min: 3, Max: 6}, summary.Window)
	assert.Equal(t, []string{"5"}, summary.Added)
}

func TestScan_NewLimitStopsEarly(t *testing.T) {
	site := newSite(map[int]string{1: "A", 2: "B", 3: "C", 4: "D"})
	svc, _ := newTestService(t, site)

	opts := window(1, 4)
	opts.NewLimit = 2
	summary, err := svc.Scan(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, summary.Added)
	assert.True(t, summary.Report.LimitReached)
	assert.Len(t, site.fetched, 2)
}

func TestScan_CancelledPassStillSaves(t *testing.T) {
	site := newSite(map[int]string{1: "A", 2: "B", 3: "C"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	site.onFetch = func(url string) {
		if strings.HasSuffix(url, "/2") {
			cancel()
		}
	}
	svc, path := newTestService(t, site)

	summary, err := svc.Scan(ctx, window(1, 3))
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, []string{"1", "2"}, summary.Added)
	assert.Equal(t, 2, loadDataset(t, path).Len())
}

func TestScan_PersistenceError(t *testing.T) {
	site := newSite(map[int]string{1: "A"})
	parent := filepath.Join(t.TempDir(), "out")
	// the parent directory turns into a regular file while the scan runs
	site.onFetch = func(string) {
		_ = os.WriteFile(parent, []byte("x"), 0o644)
	}
	svc := NewService(dataset.Config{
		OutputPath: filepath.Join(parent, "records.ndjson"),
		Format:     "ndjson",
	}, site, nil, WithSource(pageSource{}))

	summary, err := svc.Scan(context.Background(), window(1, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrPersistence)
	require.NotNil(t, summary)
	assert.Equal(t, []string{"1"}, summary.Added)
}

func TestScan_UnknownSource(t *testing.T) {
	svc, _ := newTestService(t, newSite(nil))
	_, err := svc.Scan(context.Background(), ScanOptions{Config: scan.Config{Source: "nope", Min: 1, Max: 1}})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestScan_InvalidWindow(t *testing.T) {
	svc, _ := newTestService(t, newSite(nil))
	_, err := svc.Scan(context.Background(), window(5, 2))
	assert.ErrorIs(t, err, scan.ErrInvalidWindow)
}

func TestScan_RejectsConcurrentPass(t *testing.T) {
	site := newSite(map[int]string{1: "A"})
	svc, _ := newTestService(t, site)

	inner := make(chan error, 1)
	site.onFetch = func(string) {
		_, err := svc.Scan(context.Background(), window(1, 1))
		inner <- err
	}
	_, err := svc.Scan(context.Background(), window(1, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, <-inner, ErrScanInProgress)
}

type failingMirror struct {
	calls int
}

func (m *failingMirror) Name() string { return "failing" }

func (m *failingMirror) Publish(context.Context, *record.Dataset) error {
	m.calls++
	return errors.New("mirror down")
}

func TestScan_MirrorsAreNonFatal(t *testing.T) {
	site := newSite(map[int]string{1: "A", 2: "B"})
	bad := &failingMirror{}
	mirrorPath := filepath.Join(t.TempDir(), "web.json")
	svc, path := newTestService(t, site,
		WithMirror(bad),
		WithMirror(&FileMirror{Path: mirrorPath, Format: dataset.FormatArray}),
	)

	_, err := svc.Scan(context.Background(), window(1, 2))
	require.NoError(t, err)
	site.remove(2)
	_, err = svc.Scan(context.Background(), window(1, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, bad.calls)
	assert.Equal(t, 2, loadDataset(t, path).Len())

	mirrored := loadDataset(t, mirrorPath)
	assert.Equal(t, 1, mirrored.Len())
	assert.True(t, mirrored.Has("1"))
}

func TestRecords(t *testing.T) {
	site := newSite(map[int]string{1: "A", 2: "B", 3: "C"})
	svc, _ := newTestService(t, site)
	_, err := svc.Scan(context.Background(), window(1, 3))
	require.NoError(t, err)
	site.remove(2)
	_, err = svc.Scan(context.Background(), window(1, 3))
	require.NoError(t, err)

	tests := []struct {
		status string
		want   []string
	}{
		{"", []string{"1", "2", "3"}},
		{"active", []string{"1", "3"}},
		{"deleted", []string{"2"}},
	}
	for _, tt := range tests {
		t.Run("status="+tt.status, func(t *testing.T) {
			records, err := svc.Records(context.Background(), tt.status)
			require.NoError(t, err)
			ids := make([]string, len(records))
			for i, r := range records {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err = svc.Records(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecord(t *testing.T) {
	svc, _ := newTestService(t, newSite(map[int]string{7: "Seven"}))
	_, err := svc.Scan(context.Background(), window(7, 7))
	require.NoError(t, err)

	r, err := svc.Record(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Seven", r.StringField(record.FieldTitle))

	_, err = svc.Record(context.Background(), "8")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRuns_WithoutStore(t *testing.T) {
	svc, _ := newTestService(t, newSite(nil))
	_, err := svc.Runs(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoRunStore)
	_, err = svc.Run(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoRunStore)
}

func TestSources(t *testing.T) {
	svc, _ := newTestService(t, newSite(nil))
	assert.Equal(t, []string{"pages"}, svc.Sources())
}
