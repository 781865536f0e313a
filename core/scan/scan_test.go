package scan

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"manhole-tracker/core/fetch"
	"manhole-tracker/core/reconcile"
	"manhole-tracker/core/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) fetch.Outcome {
	args := m.Called(ctx, url)
	return args.Get(0).(fetch.Outcome)
}

type stubSource struct {
	parse func(id string, content []byte) (record.Candidate, error)
}

func (s stubSource) Name() string         { return "stub" }
func (s stubSource) URL(id int) string    { return "http://stub/" + strconv.Itoa(id) }
func (s stubSource) CoreFields() []string { return []string{record.FieldTitle} }

func (s stubSource) Parse(id string, content []byte) (record.Candidate, error) {
	if s.parse != nil {
		return s.parse(id, content)
	}
	c := record.NewCandidate(id)
	c.Set(record.FieldTitle, string(content))
	return c, nil
}

func TestWindow(t *testing.T) {
	w := Window{Min: 3, Max: 7}
	assert.Equal(t, 5, w.Len())
	assert.False(t, w.Empty())
	assert.NoError(t, w.Validate())
	assert.Equal(t, "[3, 7]", w.String())

	assert.True(t, Window{Min: 5, Max: 4}.Empty())
	assert.Equal(t, 0, Window{Min: 5, Max: 4}.Len())
	assert.ErrorIs(t, Window{Min: 0, Max: 4}.Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, Window{Min: 5, Max: 4}.Validate(), ErrInvalidWindow)
}

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		highest int
		want    Window
		wantErr bool
	}{
		{"full scan", Config{Min: 1, Max: 1500}, 900, Window{1, 1500}, false},
		{"full scan ignores highest", Config{Min: 10, Max: 20}, 15, Window{10, 20}, false},
		{"min defaults to one", Config{Max: 5}, 0, Window{1, 5}, false},
		{"inverted manual window", Config{Min: 10, Max: 5}, 0, Window{}, true},
		{"resume after highest", Config{Min: 1, Max: 1500, Resume: true}, 900, Window{901, 1500}, false},
		{"resume on empty dataset", Config{Min: 1, Max: 50, Resume: true}, 0, Window{1, 50}, false},
		{"resume below min", Config{Min: 100, Max: 150, Resume: true}, 20, Window{100, 150}, false},
		{"resume with lookahead", Config{Min: 1, Resume: true, Lookahead: 200}, 900, Window{901, 1100}, false},
		{"resume past max is empty", Config{Min: 1, Max: 100, Resume: true}, 100, Window{101, 100}, false},
		{"resume without bound", Config{Min: 1, Resume: true}, 10, Window{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWindow(tt.cfg, tt.highest)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDriver_VisitsInOrder(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, "http://stub/1").Return(fetch.Outcome{Kind: fetch.Found, Content: []byte("a")})
	f.On("Fetch", mock.Anything, "http://stub/2").Return(fetch.Outcome{Kind: fetch.Absent, StatusCode: 404})
	f.On("Fetch", mock.Anything, "http://stub/3").Return(fetch.Outcome{Kind: fetch.Failure, Attempts: 3, Err: assert.AnError})

	var visited []string
	d := NewDriver(stubSource{}, f, 0, nil)
	rep := d.Run(context.Background(), Window{Min: 1, Max: 3}, func(id string, out fetch.Outcome) bool {
		visited = append(visited, id)
		return out.Kind == fetch.Found
	})

	assert.Equal(t, []string{"1", "2", "3"}, visited)
	assert.Equal(t, 3, rep.Visited)
	assert.Equal(t, 1, rep.Found)
	assert.Equal(t, 1, rep.Absent)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, []string{"3"}, rep.Skipped)
	assert.Equal(t, 1, rep.Discovered)
	assert.Equal(t, 3, rep.LastID)
	assert.False(t, rep.Cancelled)
	f.AssertExpectations(t)
}

func TestDriver_NewLimit(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, mock.Anything).Return(fetch.Outcome{Kind: fetch.Found})

	d := NewDriver(stubSource{}, f, 2, nil)
	rep := d.Run(context.Background(), Window{Min: 1, Max: 10}, func(id string, out fetch.Outcome) bool {
		return true
	})

	assert.True(t, rep.LimitReached)
	assert.Equal(t, 2, rep.Visited)
	assert.Equal(t, 2, rep.LastID)
	f.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestDriver_CancelBetweenIDs(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, mock.Anything).Return(fetch.Outcome{Kind: fetch.Found})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var visited []string
	d := NewDriver(stubSource{}, f, 0, nil)
	rep := d.Run(ctx, Window{Min: 1, Max: 10}, func(id string, out fetch.Outcome) bool {
		visited = append(visited, id)
		if id == "3" {
			cancel()
		}
		return false
	})

	assert.True(t, rep.Cancelled)
	assert.Equal(t, []string{"1", "2", "3"}, visited, "the in-flight id completes, the next is never fetched")
	f.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestDriver_EmptyWindow(t *testing.T) {
	f := new(mockFetcher)
	d := NewDriver(stubSource{}, f, 0, nil)
	rep := d.Run(context.Background(), Window{Min: 5, Max: 4}, func(string, fetch.Outcome) bool { return false })
	assert.Equal(t, 0, rep.Visited)
	assert.Empty(t, rep.Skipped)
	f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestObserve(t *testing.T) {
	src := stubSource{}

	obs, err := Observe(src, "4", fetch.Outcome{Kind: fetch.Found, Content: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Found, obs.Kind)
	assert.Equal(t, "hello", obs.Candidate.String(record.FieldTitle))
	assert.Equal(t, "4", obs.Candidate.ID)

	obs, err = Observe(src, "4", fetch.Outcome{Kind: fetch.Absent})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Absent, obs.Kind)

	obs, err = Observe(src, "4", fetch.Outcome{Kind: fetch.Failure})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Failed, obs.Kind)
}

func TestObserve_ParseErrors(t *testing.T) {
	noRecord := stubSource{parse: func(id string, _ []byte) (record.Candidate, error) {
		return record.Candidate{}, fmt.Errorf("missing map link: %w", ErrNoRecord)
	}}
	obs, err := Observe(noRecord, "9", fetch.Outcome{Kind: fetch.Found})
	assert.ErrorIs(t, err, ErrNoRecord)
	assert.Equal(t, reconcile.Unparsed, obs.Kind)

	gone := stubSource{parse: func(id string, _ []byte) (record.Candidate, error) {
		return record.Candidate{}, ErrAbsent
	}}
	obs, err = Observe(gone, "9", fetch.Outcome{Kind: fetch.Found})
	assert.NoError(t, err)
	assert.Equal(t, reconcile.Absent, obs.Kind)

	wrongID := stubSource{parse: func(id string, _ []byte) (record.Candidate, error) {
		return record.NewCandidate("10"), nil
	}}
	obs, err = Observe(wrongID, "9", fetch.Outcome{Kind: fetch.Found})
	assert.ErrorIs(t, err, ErrNoRecord)
	assert.Equal(t, reconcile.Unparsed, obs.Kind)
}
