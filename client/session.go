package client

import (
	"context"
	"sync"
)

// SessionStore caches the current user for one client instance and lets UI
// layers subscribe to changes explicitly instead of relying on framework
// re-rendering. Staleness across independent stores is acceptable; each
// store refreshes on demand.
type SessionStore struct {
	api *Client

	mu     sync.Mutex
	user   *User
	subs   map[int]func(*User)
	nextID int
}

func NewSessionStore(api *Client) *SessionStore {
	return &SessionStore{
		api:  api,
		subs: make(map[int]func(*User)),
	}
}

// GetUser returns the cached user without touching the network; nil means
// nobody is signed in (or Refresh has not run yet).
func (s *SessionStore) GetUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Refresh re-fetches the current user from the server and notifies
// subscribers when the cached value changes.
func (s *SessionStore) Refresh(ctx context.Context) error {
	user, err := s.api.Me(ctx)
	if err != nil {
		return err
	}
	s.set(user)
	return nil
}

// Subscribe registers a callback invoked on every session change. The
// returned function unsubscribes; calling it more than once is harmless.
func (s *SessionStore) Subscribe(fn func(*User)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) SignUp(ctx context.Context, email, password, name string) (*User, error) {
	user, err := s.api.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	s.set(user)
	return user, nil
}

func (s *SessionStore) SignIn(ctx context.Context, email, password string) (*User, error) {
	user, err := s.api.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(user)
	return user, nil
}

func (s *SessionStore) SignOut(ctx context.Context) error {
	if err := s.api.SignOut(ctx); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

func (s *SessionStore) set(user *User) {
	s.mu.Lock()
	changed := !sameUser(s.user, user)
	s.user = user
	var subs []func(*User)
	if changed {
		subs = make([]func(*User), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may call back into the
	// store.
	for _, fn := range subs {
		fn(user)
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Email == b.Email && a.Name == b.Name && a.AvatarURL == b.AvatarURL
}
