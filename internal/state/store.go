package state

import (
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/atlas-tui/atlas/internal/countries"
	"github.com/atlas-tui/atlas/internal/favorites"
	"github.com/atlas-tui/atlas/internal/listing"
	"github.com/atlas-tui/atlas/internal/session"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Session   session.Snapshot
	Listing   listing.Snapshot
	Favorites favorites.Snapshot

	// FavoriteCountries is Favorites joined against the loaded countries.
	FavoriteCountries []countries.Country

	Version             uint64
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // transport failures in a row
}

// IsOffline returns true when the API has been unreachable for several
// requests in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Source is a component that publishes snapshots of type T.
type Source[T any] interface {
	Snapshot() T
	Subscribe(fn func(T)) (unsubscribe func())
}

// Store fans in the component snapshots. The zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	changed  chan struct{}
}

func (s *Store) signalLocked() {
	s.snapshot.Version++
	s.snapshot.LastUpdated = time.Now()
	if s.changed == nil {
		s.changed = make(chan struct{}, 1)
	}
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Changes returns a channel that receives after every update. Bursts are
// coalesced into one pending signal.
func (s *Store) Changes() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changed == nil {
		s.changed = make(chan struct{}, 1)
	}
	return s.changed
}

// SetSession replaces the session part.
func (s *Store) SetSession(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Session = snap
	s.signalLocked()
}

// SetListing replaces the listing part.
func (s *Store) SetListing(snap listing.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Listing = snap
	s.signalLocked()
}

// SetFavorites replaces the favorites part.
func (s *Store) SetFavorites(snap favorites.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Favorites = snap
	s.signalLocked()
}

// Record notes the outcome of a user-initiated operation. Errors are kept
// for display; only transport failures, where the API never answered,
// count toward IsOffline.
func (s *Store) Record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.snapshot.LastError = nil
		s.snapshot.ConsecutiveFailures = 0
		s.signalLocked()
		return
	}
	s.snapshot.LastError = err
	var apiErr *countries.APIError
	if errors.As(err, &apiErr) {
		s.snapshot.ConsecutiveFailures = 0
	} else {
		s.snapshot.ConsecutiveFailures++
	}
	s.signalLocked()
}

// Attach subscribes the store to the three components and seeds it with
// their current snapshots. The returned func unsubscribes from all of them.
func (s *Store) Attach(sess Source[session.Snapshot], favs Source[favorites.Snapshot], list Source[listing.Snapshot]) (detach func()) {
	s.SetSession(sess.Snapshot())
	s.SetFavorites(favs.Snapshot())
	s.SetListing(list.Snapshot())

	unsubs := []func(){
		sess.Subscribe(s.SetSession),
		favs.Subscribe(s.SetFavorites),
		list.Subscribe(s.SetListing),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Listing.Countries = cloneCountries(s.snapshot.Listing.Countries)
	snap.Listing.Visible = cloneCountries(s.snapshot.Listing.Visible)
	snap.Favorites.Entries = append([]favorites.Entry(nil), s.snapshot.Favorites.Entries...)
	snap.FavoriteCountries = favorites.ResolveCodes(snap.Favorites.Codes(), snap.Listing.Countries)
	return snap
}

func cloneCountries(items []countries.Country) []countries.Country {
	if len(items) == 0 {
		return nil
	}
	dup := make([]countries.Country, len(items))
	copy(dup, items)
	return dup
}
