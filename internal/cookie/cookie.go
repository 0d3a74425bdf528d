package cookie

import (
	"net/http"
	"strings"
	"sync"
)

// Store holds cookie name/value pairs in first-seen order.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	names  []string
	values map[string]string
}

// New creates a store seeded from a Cookie header value such as "a=1; b=2".
// Malformed pairs in the seed are ignored.
func New(seed string) *Store {
	s := &Store{values: make(map[string]string)}
	if strings.TrimSpace(seed) == "" {
		return s
	}
	cookies, err := http.ParseCookie(seed)
	if err != nil {
		// Fall back to pair-by-pair parsing so one bad pair does not drop
		// the rest of the seed.
		for _, part := range strings.Split(seed, ";") {
			if c, perr := http.ParseCookie(strings.TrimSpace(part)); perr == nil {
				cookies = append(cookies, c...)
			}
		}
	}
	for _, c := range cookies {
		s.set(c.Name, c.Value)
	}
	return s
}

// Empty reports whether the store holds no cookies.
func (s *Store) Empty() bool {
	return s.Len() == 0
}

// Len returns the number of cookies held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Get returns the value of the named cookie.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// String renders the store as a Cookie header value.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]string, 0, len(s.names))
	for _, name := range s.names {
		pairs = append(pairs, name+"="+s.values[name])
	}
	return strings.Join(pairs, "; ")
}

// Merge applies raw Set-Cookie header values to the store.
// Later values overwrite earlier ones; a cookie with a negative Max-Age is
// removed. Values that cannot be parsed are skipped.
func (s *Store) Merge(values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, raw := range values {
		c, err := http.ParseSetCookie(raw)
		if err != nil {
			continue
		}
		if c.MaxAge < 0 {
			s.remove(c.Name)
			continue
		}
		s.set(c.Name, c.Value)
	}
}

// set must be called with the write lock held (or before the store is shared).
func (s *Store) set(name, value string) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

func (s *Store) remove(name string) {
	if _, ok := s.values[name]; !ok {
		return
	}
	delete(s.values, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}
