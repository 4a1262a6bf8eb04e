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
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"k8s.io/utils/clock"
)

// Store persists pending Flash instances between the request that saves
// them and the request that receives them, keyed by session. Implementations
// must serialize concurrent save/retrieve against the same session.
type Store interface {
	// Save appends the Flash to the session's pending set.
	Save(sessionKey string, f *Flash) error
	// RetrieveAndRemoveBestMatch discards expired entries, selects the
	// best-matching pending Flash for the request, removes it and returns
	// it. A nil return is a normal outcome.
	RetrieveAndRemoveBestMatch(sessionKey string, r *http.Request) *Flash
	// SweepExpired drops expired entries independent of retrieval.
	SweepExpired()
}

const defaultSessionTTL = 30 * time.Minute

// MemoryStore is an in-process Store. Session buckets live in a TTL cache
// so abandoned sessions are garbage-collected even if never retrieved;
// individual Flash expiry is checked against the injected clock.
type MemoryStore struct {
	mu      sync.Mutex
	buckets *ttlcache.Cache[string, []*Flash]
	clock   clock.Clock
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	clock      clock.Clock
	sessionTTL time.Duration
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) MemoryStoreOption {
	return func(cfg *memoryStoreConfig) { cfg.clock = c }
}

// WithSessionTTL sets how long an untouched session bucket is retained.
func WithSessionTTL(ttl time.Duration) MemoryStoreOption {
	return func(cfg *memoryStoreConfig) { cfg.sessionTTL = ttl }
}

// NewMemoryStore creates a MemoryStore and starts its eviction loop.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{clock: clock.RealClock{}, sessionTTL: defaultSessionTTL}
	for _, opt := range opts {
		opt(cfg)
	}
	buckets := ttlcache.New[string, []*Flash](
		ttlcache.WithTTL[string, []*Flash](cfg.sessionTTL),
		ttlcache.WithDisableTouchOnHit[string, []*Flash](),
	)
	go buckets.Start()
	return &MemoryStore{buckets: buckets, clock: cfg.clock}
}

// Close stops the eviction loop.
func (s *MemoryStore) Close() {
	s.buckets.Stop()
}

// Save implements Store.
func (s *MemoryStore) Save(sessionKey string, f *Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.live(sessionKey)
	pending = append(pending, f)
	s.buckets.Set(sessionKey, pending, ttlcache.DefaultTTL)
	return nil
}

// RetrieveAndRemoveBestMatch implements Store. The selected Flash is removed
// under the store lock so it is visible to exactly one request.
func (s *MemoryStore) RetrieveAndRemoveBestMatch(sessionKey string, r *http.Request) *Flash {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.live(sessionKey)
	matches := make([]*Flash, 0, len(pending))
	for _, f := range pending {
		if f.MatchesRequest(r) {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		s.writeBack(sessionKey, pending)
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Compare(matches[j]) < 0
	})
	best := matches[0]

	remaining := make([]*Flash, 0, len(pending)-1)
	for _, f := range pending {
		if f != best {
			remaining = append(remaining, f)
		}
	}
	s.writeBack(sessionKey, remaining)
	return best
}

// SweepExpired implements Store.
func (s *MemoryStore) SweepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets.DeleteExpired()
	for key, item := range s.buckets.Items() {
		s.writeBack(key, dropExpired(item.Value(), s.clock.Now()))
	}
}

// live returns the session's pending entries with expired ones dropped.
// Callers must hold the store lock.
func (s *MemoryStore) live(sessionKey string) []*Flash {
	item := s.buckets.Get(sessionKey)
	if item == nil {
		return nil
	}
	return dropExpired(item.Value(), s.clock.Now())
}

func (s *MemoryStore) writeBack(sessionKey string, pending []*Flash) {
	if len(pending) == 0 {
		s.buckets.Delete(sessionKey)
		return
	}
	s.buckets.Set(sessionKey, pending, ttlcache.DefaultTTL)
}

func dropExpired(pending []*Flash, now time.Time) []*Flash {
	kept := make([]*Flash, 0, len(pending))
	for _, f := range pending {
		if !f.Expired(now) {
			kept = append(kept, f)
		}
	}
	return kept
}
