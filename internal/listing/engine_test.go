package listing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/countries"
)

type fakePager struct {
	mu        sync.Mutex
	all       []countries.Country
	search    map[string][]countries.Country
	listErr   error
	searchErr error
	listGate  chan struct{}
	calls     []string
}

func (p *fakePager) ListCountries(_ context.Context, page, limit int) ([]countries.Country, error) {
	p.mu.Lock()
	p.calls = append(p.calls, fmt.Sprintf("list:%d:%d", page, limit))
	gate := p.listGate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	start := (page - 1) * limit
	if start >= len(p.all) {
		return nil, nil
	}
	end := start + limit
	if end > len(p.all) {
		end = len(p.all)
	}
	return append([]countries.Country(nil), p.all[start:end]...), nil
}

func (p *fakePager) SearchCountries(_ context.Context, kind countries.FilterKind, query string) ([]countries.Country, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("search:%s:%s", kind, query))
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.search[query], nil
}

func (p *fakePager) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePager) setGate(gate chan struct{}) {
	p.mu.Lock()
	p.listGate = gate
	p.mu.Unlock()
}

func mk(code, region, subregion string, langs ...string) countries.Country {
	c := countries.Country{CCA3: code, Name: countries.CountryName{Common: code}, Region: region, Subregion: subregion}
	if len(langs) > 0 {
		c.Languages = map[string]string{}
		for i, l := range langs {
			c.Languages[fmt.Sprintf("l%d", i)] = l
		}
	}
	return c
}

func world() []countries.Country {
	return []countries.Country{
		mk("FRA", "Europe", "Western Europe", "French"),
		mk("JPN", "Asia", "Eastern Asia", "Japanese"),
		mk("DEU", "Europe", "Western Europe", "German"),
		mk("EGY", "Africa", "Northern Africa", "Arabic"),
		mk("BRA", "Americas", "South America", "Portuguese"),
		mk("CAN", "Americas", "North America", "English", "French"),
		mk("AUS", "Oceania", "Australia and New Zealand", "English"),
	}
}

func codes(list []countries.Country) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Code())
	}
	return out
}

func TestReset_LoadsFirstPage(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p)

	require.NoError(t, e.Reset(context.Background()))
	snap := e.Snapshot()
	assert.Equal(t, []string{"FRA", "JPN", "DEU", "EGY", "BRA"}, codes(snap.Countries))
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)
	assert.Equal(t, Browse, snap.Mode)
	assert.Equal(t, []string{"list:1:5"}, p.Calls())
}

func TestLoadNextPage_StopsWhenShortPage(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p)
	require.NoError(t, e.Reset(context.Background()))

	loaded, err := e.LoadNextPage(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	snap := e.Snapshot()
	assert.Len(t, snap.Countries, 7)
	assert.False(t, snap.HasMore)

	loaded, err = e.LoadNextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, []string{"list:1:5", "list:2:5"}, p.Calls())
}

func TestLoadNextPage_SkipsDuplicateCodes(t *testing.T) {
	all := world()[:5]
	all = append(all, all[0], mk("PER", "Americas", "South America", "Spanish"))
	p := &fakePager{all: all}
	e := New(p, WithPageSize(5))
	require.NoError(t, e.Reset(context.Background()))
	_, err := e.LoadNextPage(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"FRA", "JPN", "DEU", "EGY", "BRA", "PER"}, codes(e.Snapshot().Countries))
}

func TestLoadNextPage_InFlightGateAllowsOneRequest(t *testing.T) {
	gate := make(chan struct{})
	p := &fakePager{all: world(), listGate: gate}
	e := New(p)

	first := make(chan bool, 1)
	go func() {
		loaded, _ := e.LoadNextPage(context.Background())
		first <- loaded
	}()
	require.Eventually(t, func() bool { return e.Snapshot().Loading }, time.Second, time.Millisecond)

	for i := 0; i < 3; i++ {
		loaded, err := e.LoadNextPage(context.Background())
		require.NoError(t, err)
		assert.False(t, loaded)
	}

	close(gate)
	assert.True(t, <-first)
	assert.Equal(t, []string{"list:1:5"}, p.Calls())
	assert.False(t, e.Snapshot().Loading)
}

func TestLoadNextPage_FailureKeepsSequence(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p)
	require.NoError(t, e.Reset(context.Background()))

	p.mu.Lock()
	p.listErr = errors.New("network down")
	p.mu.Unlock()
	loaded, err := e.LoadNextPage(context.Background())
	require.Error(t, err)
	assert.False(t, loaded)

	snap := e.Snapshot()
	assert.Len(t, snap.Countries, 5)
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)
	assert.False(t, snap.Loading)
	assert.Error(t, snap.Err)

	p.mu.Lock()
	p.listErr = nil
	p.mu.Unlock()
	_, err = e.LoadNextPage(context.Background())
	require.NoError(t, err)
	assert.NoError(t, e.Snapshot().Err)
}

func TestSearch_ReplacesSequenceAndDisablesPaging(t *testing.T) {
	p := &fakePager{all: world(), search: map[string][]countries.Country{
		"fr": {mk("FRA", "Europe", "Western Europe", "French")},
	}}
	e := New(p)
	require.NoError(t, e.Reset(context.Background()))

	require.NoError(t, e.Search(context.Background(), "  fr ", countries.FilterName))
	snap := e.Snapshot()
	assert.Equal(t, []string{"FRA"}, codes(snap.Countries))
	assert.Equal(t, Search, snap.Mode)
	assert.False(t, snap.HasMore)
	assert.Equal(t, "fr", snap.Query)

	loaded, err := e.LoadNextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
	loaded, err = e.BoundaryReached(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestSearchThenReset_RestoresFirstPage(t *testing.T) {
	p := &fakePager{all: world(), search: map[string][]countries.Country{"asia": {world()[1]}}}
	e := New(p)
	require.NoError(t, e.Reset(context.Background()))
	require.NoError(t, e.Search(context.Background(), "asia", countries.FilterRegion))

	require.NoError(t, e.Reset(context.Background()))
	snap := e.Snapshot()
	assert.Equal(t, Browse, snap.Mode)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, []string{"FRA", "JPN", "DEU", "EGY", "BRA"}, codes(snap.Countries))
	assert.Empty(t, snap.Query)
}

func TestSearch_EmptyQueryResets(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p)

	require.NoError(t, e.Search(context.Background(), "   ", countries.FilterCapital))
	snap := e.Snapshot()
	assert.Equal(t, Browse, snap.Mode)
	assert.Equal(t, countries.FilterCapital, snap.Kind)
	assert.Equal(t, []string{"list:1:5"}, p.Calls())
}

func TestSearch_RejectsUnknownKind(t *testing.T) {
	p := &fakePager{}
	e := New(p)
	require.Error(t, e.Search(context.Background(), "x", countries.FilterKind("planet")))
	assert.Empty(t, p.Calls())
}

func TestSearch_FailureFallsBackToBrowseAndKeepsError(t *testing.T) {
	p := &fakePager{all: world(), searchErr: &countries.APIError{Status: 404, Message: "No countries found"}}
	e := New(p)
	require.NoError(t, e.Reset(context.Background()))

	err := e.Search(context.Background(), "atlantis", countries.FilterName)
	require.Error(t, err)

	snap := e.Snapshot()
	assert.Equal(t, Browse, snap.Mode)
	assert.Equal(t, 1, snap.Page)
	assert.Len(t, snap.Countries, 5)
	require.Error(t, snap.Err)
	assert.Equal(t, "No countries found", countries.UserMessage(snap.Err))
	assert.Equal(t, []string{"list:1:5", "search:name:atlantis", "list:1:5"}, p.Calls())

	require.NoError(t, e.Reset(context.Background()))
	assert.NoError(t, e.Snapshot().Err, "an explicit reset clears the error")
}

func TestSearch_DiscardsStalePage(t *testing.T) {
	gate := make(chan struct{})
	p := &fakePager{all: world(), search: map[string][]countries.Country{"jap": {world()[1]}}}
	e := New(p)
	p.setGate(gate)

	done := make(chan bool, 1)
	go func() {
		loaded, _ := e.LoadNextPage(context.Background())
		done <- loaded
	}()
	require.Eventually(t, func() bool { return e.Snapshot().Loading }, time.Second, time.Millisecond)

	require.NoError(t, e.Search(context.Background(), "jap", countries.FilterName))
	assert.False(t, e.Snapshot().Loading, "search supersedes the page load")

	close(gate)
	assert.False(t, <-done, "stale page is discarded")

	snap := e.Snapshot()
	assert.Equal(t, []string{"JPN"}, codes(snap.Countries))
	assert.Equal(t, Search, snap.Mode)
	assert.Equal(t, 0, snap.Page)
}

func TestReset_WaitsForSupersededPage(t *testing.T) {
	gate := make(chan struct{})
	p := &fakePager{all: world()}
	e := New(p)
	p.setGate(gate)

	first := make(chan bool, 1)
	go func() {
		loaded, _ := e.LoadNextPage(context.Background())
		first <- loaded
	}()
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, time.Millisecond)

	reset := make(chan error, 1)
	go func() { reset <- e.Reset(context.Background()) }()

	assert.Never(t, func() bool { return len(p.Calls()) > 1 }, 50*time.Millisecond, time.Millisecond,
		"no second page request while one is outstanding")
	assert.True(t, e.Snapshot().Loading)

	close(gate)
	assert.False(t, <-first, "superseded page is discarded")
	require.NoError(t, <-reset)

	assert.Equal(t, []string{"list:1:5", "list:1:5"}, p.Calls())
	snap := e.Snapshot()
	assert.Equal(t, codes(world()[:5]), codes(snap.Countries))
	assert.Equal(t, 1, snap.Page)
	assert.False(t, snap.Loading)
}

func TestReset_CancelledWhileWaitingClearsLoading(t *testing.T) {
	gate := make(chan struct{})
	p := &fakePager{all: world()}
	e := New(p)
	p.setGate(gate)
	defer close(gate)

	go func() { _, _ = e.LoadNextPage(context.Background()) }()
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Reset(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Snapshot().Loading)
	assert.Len(t, p.Calls(), 1)
}

func TestApplyKeywordFilter_IsClientSide(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p, WithPageSize(10))
	require.NoError(t, e.Reset(context.Background()))

	require.NoError(t, e.ApplyKeywordFilter(context.Background(), "Europe"))
	assert.Equal(t, []string{"FRA", "DEU"}, codes(e.Visible()))

	require.NoError(t, e.ApplyKeywordFilter(context.Background(), "French"))
	assert.Equal(t, []string{"FRA", "CAN"}, codes(e.Visible()))

	require.NoError(t, e.ApplyKeywordFilter(context.Background(), "Asia"))
	snap := e.Snapshot()
	assert.Equal(t, []string{"JPN"}, codes(snap.Visible))
	assert.Len(t, snap.Countries, 7, "the sequence itself is untouched")

	require.NoError(t, e.ApplyKeywordFilter(context.Background(), ""))
	assert.Len(t, e.Visible(), 7)
	assert.Equal(t, []string{"list:1:10"}, p.Calls())
}

func TestApplyKeywordFilter_ClearingEmptySequenceResets(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p)

	require.NoError(t, e.ApplyKeywordFilter(context.Background(), "Europe"))
	assert.Empty(t, p.Calls())

	require.NoError(t, e.ApplyKeywordFilter(context.Background(), ""))
	assert.Equal(t, []string{"list:1:5"}, p.Calls())
	assert.Len(t, e.Snapshot().Countries, 5)
}

func TestBoundaryReached_IsRateLimited(t *testing.T) {
	p := &fakePager{all: append(append(world(), world()...), world()...)}
	e := New(p, WithPageSize(2), WithBoundaryLimit(time.Hour, 1))

	loaded, err := e.BoundaryReached(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)

	loaded, err = e.BoundaryReached(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded, "second trigger within the window is dropped")
	assert.Equal(t, []string{"list:1:2"}, p.Calls())
}

func TestSubscribe_NotifiesLoadingTransitions(t *testing.T) {
	p := &fakePager{all: world()}
	e := New(p)

	var mu sync.Mutex
	var loading []bool
	unsubscribe := e.Subscribe(func(s Snapshot) {
		mu.Lock()
		loading = append(loading, s.Loading)
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := e.LoadNextPage(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, loading)
}
