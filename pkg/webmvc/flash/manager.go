/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package flash

import (
	"net/http"
	"time"

	"k8s.io/utils/clock"
)

// DefaultTTL is the default expiration window for a saved Flash, counted
// from save time.
const DefaultTTL = 180 * time.Second

// SessionKeyFunc derives the store key for a request.
type SessionKeyFunc func(r *http.Request) string

// DefaultSessionKey keys by the "session" cookie when present, falling back
// to the remote address.
func DefaultSessionKey(r *http.Request) string {
	if c, err := r.Cookie("session"); err == nil && c.Value != "" {
		return c.Value
	}
	return r.RemoteAddr
}

// Manager binds a Store to requests: it saves outgoing flash state before a
// redirect and retrieves pending state at the start of the next request.
type Manager struct {
	store      Store
	ttl        time.Duration
	clock      clock.Clock
	sessionKey SessionKeyFunc
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL sets the expiration window for saved flash state.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithManagerClock replaces the wall clock, for tests.
func WithManagerClock(c clock.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithSessionKeyFunc replaces the session key derivation.
func WithSessionKeyFunc(fn SessionKeyFunc) ManagerOption {
	return func(m *Manager) { m.sessionKey = fn }
}

// NewManager creates a Manager on top of the given Store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		ttl:        DefaultTTL,
		clock:      clock.RealClock{},
		sessionKey: DefaultSessionKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SaveOutput stores the Flash for the next request. It must be called
// strictly before the redirect response is committed. Empty flash state is
// skipped. The expiration clock starts now.
func (m *Manager) SaveOutput(f *Flash, r *http.Request) error {
	if f == nil || f.IsEmpty() {
		return nil
	}
	f.ResolveTargetPath(r.URL.Path)
	f.StartExpiration(m.ttl, m.clock.Now())
	return m.store.Save(m.sessionKey(r), f)
}

// RetrieveAndRemove returns the best-matching pending Flash for the
// request, removing it from the store. Called once at the very start of
// every incoming request; nil is a normal outcome.
func (m *Manager) RetrieveAndRemove(r *http.Request) *Flash {
	return m.store.RetrieveAndRemoveBestMatch(m.sessionKey(r), r)
}
