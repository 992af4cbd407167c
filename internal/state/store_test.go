package state

import (
	"context"
	"errors"
	"testing"

	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/favorites"
	"github.com/atlas-tui/atlas/internal/listing"
	"github.com/atlas-tui/atlas/internal/session"
)

func TestStore_SettersAndSnapshotClone(t *testing.T) {
	var s Store

	s.SetListing(listing.Snapshot{
		Countries: []countries.Country{{CCA3: "FRA"}, {CCA3: "JPN"}},
		Page:      1,
		HasMore:   true,
	})
	s.SetFavorites(favorites.Snapshot{Entries: []favorites.Entry{
		{Favorite: countries.Favorite{Code: "JPN"}},
		{Favorite: countries.Favorite{Code: "ATA"}},
	}})
	s.SetSession(session.Snapshot{Phase: session.Authenticated, Token: "tok"})

	snap := s.Snapshot()
	if snap.Version != 3 {
		t.Fatalf("Version = %d, want 3", snap.Version)
	}
	if snap.Session.Phase != session.Authenticated {
		t.Fatalf("Session.Phase = %v, want authenticated", snap.Session.Phase)
	}
	if len(snap.FavoriteCountries) != 1 || snap.FavoriteCountries[0].CCA3 != "JPN" {
		t.Fatalf("FavoriteCountries = %#v, want only JPN", snap.FavoriteCountries)
	}
	if codes := snap.Favorites.Codes(); len(codes) != 2 || codes[0] != "JPN" || codes[1] != "ATA" {
		t.Fatalf("Favorites.Codes() = %v, want [JPN ATA]", codes)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Listing.Countries[0].CCA3 = "XXX"
	snap2 := s.Snapshot()
	if snap2.Listing.Countries[0].CCA3 != "FRA" {
		t.Fatalf("Snapshot should clone countries; got %q", snap2.Listing.Countries[0].CCA3)
	}
}

func TestStore_RecordCountsOnlyTransportFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true on zero store")
	}

	s.Record(errors.New("dial tcp: connection refused"))
	s.Record(errors.New("dial tcp: connection refused"))
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after two transport failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Record(&countries.APIError{Status: 404, Message: "not found"})
	snap = s.Snapshot()
	if snap.IsOffline() {
		t.Fatal("an API answer means the server is reachable")
	}
	if snap.LastError == nil || countries.UserMessage(snap.LastError) != "not found" {
		t.Fatalf("LastError = %v, want API error", snap.LastError)
	}

	s.Record(nil)
	snap = s.Snapshot()
	if snap.LastError != nil || snap.ConsecutiveFailures != 0 {
		t.Fatalf("Record(nil) should clear: %v / %d", snap.LastError, snap.ConsecutiveFailures)
	}
}

func TestStore_ChangesCoalesces(t *testing.T) {
	var s Store
	ch := s.Changes()

	s.SetListing(listing.Snapshot{Page: 1})
	s.SetListing(listing.Snapshot{Page: 2})

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending change signal")
	}
	select {
	case <-ch:
		t.Fatal("bursts should coalesce into one signal")
	default:
	}
	if got := s.Snapshot().Listing.Page; got != 2 {
		t.Fatalf("Listing.Page = %d, want 2", got)
	}
}

type stubPager struct{}

func (stubPager) ListCountries(context.Context, int, int) ([]countries.Country, error) {
	return []countries.Country{{CCA3: "PER"}}, nil
}

func (stubPager) SearchCountries(context.Context, countries.FilterKind, string) ([]countries.Country, error) {
	return nil, nil
}

type stubFavorites struct{}

func (stubFavorites) ListFavorites(context.Context) ([]countries.Favorite, error) {
	return []countries.Favorite{{Code: "PER", Name: "Peru"}}, nil
}

func (stubFavorites) AddFavorite(_ context.Context, f countries.Favorite) (countries.Favorite, error) {
	return f, nil
}

func (stubFavorites) RemoveFavorite(context.Context, string) error { return nil }

type stubAuth struct{}

func (stubAuth) Login(context.Context, countries.Credentials) (countries.AuthResponse, error) {
	return countries.AuthResponse{}, nil
}

func (stubAuth) Register(context.Context, countries.Registration) (countries.AuthResponse, error) {
	return countries.AuthResponse{}, nil
}

func (stubAuth) Me(context.Context) (countries.User, error) { return countries.User{}, nil }

type nopTokens struct{}

func (nopTokens) Load() (string, error) { return "", nil }
func (nopTokens) Save(string) error     { return nil }
func (nopTokens) Clear() error          { return nil }

func TestStore_AttachFollowsComponents(t *testing.T) {
	var s Store
	holder := session.New(stubAuth{}, nopTokens{})
	favs := favorites.New(stubFavorites{}, countries.StaticToken("tok"))
	engine := listing.New(stubPager{})

	detach := s.Attach(holder, favs, engine)

	if err := engine.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := favs.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Listing.Countries) != 1 {
		t.Fatalf("Listing.Countries = %d, want 1", len(snap.Listing.Countries))
	}
	if len(snap.FavoriteCountries) != 1 || snap.FavoriteCountries[0].CCA3 != "PER" {
		t.Fatalf("FavoriteCountries = %#v, want PER", snap.FavoriteCountries)
	}

	detach()
	before := s.Snapshot().Version
	favs.Clear()
	if after := s.Snapshot().Version; after != before {
		t.Fatalf("store still updated after detach: %d -> %d", before, after)
	}
}
