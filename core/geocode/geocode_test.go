package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"manhole-tracker/core/fetch"
	"manhole-tracker/core/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Lookup(ctx context.Context, q Query) (Coordinate, bool, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(Coordinate), args.Bool(1), args.Error(2)
}

func (m *mockProvider) Pause(configured time.Duration) time.Duration { return configured }

type countingSleeper struct {
	calls int32
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	atomic.AddInt32(&s.calls, 1)
	return nil
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  中区本町１－２－３  ", "中区本町1-2-3"},
		{"西区１ー２", "西区1-2"},
		{"港町２――５", "港町2-5"},
		{"ＡＢＣビル３階", "ABCビル3階"},
		{"1--2---3", "1-2-3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.in))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "静岡県|静岡市|葵区追手町9-6", Key("静岡県", "静岡市", "葵区追手町９－６"))
	assert.Equal(t, Key("静岡県", "静岡市", "葵区追手町9-6"), Key("静岡県", "静岡市", "葵区追手町９―６"))
}

func TestCache_LoadStoreSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"a|b|1": {"lat": 35.1, "lng": 139.2, "provider": "gsi"},
		"a|b|2": {"lat": 35.3},
		"a|b|3": "garbage"
	}`), 0o644))

	c := Load(path, nil)
	assert.Equal(t, 1, c.Len())
	got, ok := c.Lookup("a|b|1")
	require.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 35.1, Lng: 139.2}, got)
	assert.False(t, c.Dirty())

	assert.False(t, c.Store("a|b|1", Coordinate{Lat: 1, Lng: 1}, "nominatim"), "existing keys are never overwritten")
	got, _ = c.Lookup("a|b|1")
	assert.Equal(t, 35.1, got.Lat)

	assert.True(t, c.Store("a|b|4", Coordinate{Lat: 34, Lng: 135}, "nominatim"))
	assert.True(t, c.Dirty())
	require.NoError(t, c.Save())
	assert.False(t, c.Dirty())

	reloaded := Load(path, nil)
	assert.Equal(t, 2, reloaded.Len())
	got, ok = reloaded.Lookup("a|b|4")
	require.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 34, Lng: 135}, got)
}

func TestCache_SaveOnlyWhenDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := Load(path, nil)
	require.NoError(t, c.Save())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	c := Load(path, nil)
	assert.Equal(t, 0, c.Len())
}

func TestResolver_CacheFirst(t *testing.T) {
	cache := NewCache("", nil)
	cache.Store(Key("静岡県", "静岡市", "追手町9-6"), Coordinate{Lat: 34.97, Lng: 138.38}, "gsi")

	p := new(mockProvider)
	sleeper := &countingSleeper{}
	r := NewResolver(cache, p, time.Second, sleeper, nil)

	got, ok := r.Resolve(context.Background(), "静岡県", "静岡市", "追手町９－６")
	assert.True(t, ok)
	assert.Equal(t, 34.97, got.Lat)
	p.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	assert.Equal(t, int32(0), atomic.LoadInt32(&sleeper.calls))
}

func TestResolver_ProviderMissStoresSuccess(t *testing.T) {
	cache := NewCache("", nil)
	p := new(mockProvider)
	p.On("Lookup", mock.Anything, Query{Prefecture: "愛知県", City: "名古屋市", Address: "中区1-1"}).
		Return(Coordinate{Lat: 35.18, Lng: 136.9}, true, nil).Once()
	sleeper := &countingSleeper{}
	r := NewResolver(cache, p, time.Second, sleeper, nil)

	got, ok := r.Resolve(context.Background(), "愛知県", "名古屋市", "中区１－１")
	require.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 35.18, Lng: 136.9}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sleeper.calls))

	_, ok = r.Resolve(context.Background(), "愛知県", "名古屋市", "中区1-1")
	assert.True(t, ok)
	p.AssertExpectations(t)
	assert.Equal(t, 1, cache.Len())
}

func TestResolver_FailuresAreNotCached(t *testing.T) {
	cache := NewCache("", nil)
	p := new(mockProvider)
	p.On("Lookup", mock.Anything, mock.Anything).Return(Coordinate{}, false, assert.AnError).Once()
	p.On("Lookup", mock.Anything, mock.Anything).Return(Coordinate{}, false, nil).Once()
	r := NewResolver(cache, p, 0, &countingSleeper{}, nil)

	_, ok := r.Resolve(context.Background(), "p", "c", "a")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), "p", "c", "a")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
	p.AssertNumberOfCalls(t, "Lookup", 2)
}

func TestResolver_IncompleteAddress(t *testing.T) {
	p := new(mockProvider)
	r := NewResolver(NewCache("", nil), p, 0, &countingSleeper{}, nil)
	_, ok := r.Resolve(context.Background(), "", "c", "a")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), "p", "c", "")
	assert.False(t, ok)
	p.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestResolver_CollapsesConcurrentLookups(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	p := new(mockProvider)
	p.On("Lookup", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			atomic.AddInt32(&calls, 1)
			<-release
		}).
		Return(Coordinate{Lat: 1, Lng: 2}, true, nil)
	r := NewResolver(NewCache("", nil), p, 0, &countingSleeper{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Resolve(context.Background(), "p", "c", "a")
			assert.True(t, ok)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestEnricher(t *testing.T) {
	cache := NewCache("", nil)
	cache.Store(Key("p", "c", "a"), Coordinate{Lat: 10, Lng: 20}, "gsi")
	e := NewEnricher(NewResolver(cache, nil, 0, &countingSleeper{}, nil), nil)

	cand := record.NewCandidate("1")
	cand.Set(record.FieldPrefecture, "p")
	cand.Set(record.FieldCity, "c")
	cand.Set(record.FieldAddress, "a")
	cand.MarkUnobserved(record.FieldLat, record.FieldLng)
	assert.True(t, e.Enrich(context.Background(), cand))
	assert.True(t, cand.Observed(record.FieldLat), "geocoded coordinates take part in comparison")
	assert.Equal(t, 10.0, cand.Fields[record.FieldLat])
	assert.Equal(t, 20.0, cand.Fields[record.FieldLng])
	assert.Equal(t, true, cand.Fields[record.FieldGeocoded])

	miss := record.NewCandidate("2")
	miss.Set(record.FieldPrefecture, "p")
	miss.Set(record.FieldAddress, "elsewhere")
	miss.MarkUnobserved(record.FieldLat, record.FieldLng)
	assert.False(t, e.Enrich(context.Background(), miss))
	assert.False(t, miss.Observed(record.FieldLat), "failed lookups keep stored coordinates")
	assert.Equal(t, false, miss.Fields[record.FieldGeocoded])
	_, hasLat := miss.Fields[record.FieldLat]
	assert.False(t, hasLat)

	located := record.NewCandidate("3")
	located.Set(record.FieldLat, 1.0)
	located.Set(record.FieldLng, 2.0)
	assert.False(t, e.Enrich(context.Background(), located))
	_, flagged := located.Fields[record.FieldGeocoded]
	assert.False(t, flagged)
}

func TestGSIProvider(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"geometry":{"coordinates":[138.38,34.97],"type":"Point"},"properties":{"title":"x"}}]`))
	}))
	defer srv.Close()

	p := &GSIProvider{httpJSON: httpJSON{client: srv.Client()}, Endpoint: srv.URL}
	got, ok, err := p.Lookup(context.Background(), Query{Prefecture: "静岡県", City: "静岡市", Address: "追手町9-6"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 34.97, Lng: 138.38}, got)
	assert.Equal(t, "静岡県静岡市追手町9-6", gotQuery)
	assert.Equal(t, 600*time.Millisecond, p.Pause(2*time.Second))
	assert.Equal(t, 300*time.Millisecond, p.Pause(0))
}

func TestGSIProvider_NoMatchAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "fail" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := &GSIProvider{httpJSON: httpJSON{client: srv.Client()}, Endpoint: srv.URL}
	_, ok, err := p.Lookup(context.Background(), Query{Address: "nowhere"})
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.Lookup(context.Background(), Query{Address: "fail"})
	assert.Error(t, err)
}

func TestNominatimProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "静岡県静岡市 追手町9-6, Japan", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"lat":"34.97","lon":"138.38"}]`))
	}))
	defer srv.Close()

	p := &NominatimProvider{httpJSON: httpJSON{client: srv.Client()}, Endpoint: srv.URL}
	got, ok, err := p.Lookup(context.Background(), Query{Prefecture: "静岡県", City: "静岡市", Address: "追手町9-6"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 34.97, Lng: 138.38}, got)
	assert.Equal(t, time.Second, p.Pause(100*time.Millisecond))
	assert.Equal(t, 3*time.Second, p.Pause(3*time.Second))
}

func TestGoogleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":34.97,"lng":138.38}}}]}`))
	}))
	defer srv.Close()

	p := &GoogleProvider{httpJSON: httpJSON{client: srv.Client()}, Endpoint: srv.URL, APIKey: "secret"}
	got, ok, err := p.Lookup(context.Background(), Query{Prefecture: "静岡県"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 34.97, Lng: 138.38}, got)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "gsi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderGSI, p.Name())

	p, err = NewProvider(Config{Provider: "nominatim"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderNominatim, p.Name())

	_, err = NewProvider(Config{Provider: "google"}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	p, err = NewProvider(Config{Provider: "google", GoogleAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p.Name())

	_, err = NewProvider(Config{Provider: "bing"}, nil)
	assert.Error(t, err)
}

var _ fetch.Sleeper = (*countingSleeper)(nil)
