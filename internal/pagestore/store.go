package pagestore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/medusa/internal/model"
)

// Store maps canonical URL keys to pages and remembers insertion order so
// iteration is deterministic.
type Store struct {
	pages map[string]*model.Page
	order []string
}

// New creates an empty store.
func New() *Store {
	return &Store{pages: make(map[string]*model.Page)}
}

// Get returns the page stored for u, or nil. Like HasPage it falls back to
// the other of http and https when u itself is not stored.
func (s *Store) Get(u *url.URL) *model.Page {
	_, p, _ := s.lookup(u)
	return p
}

// lookup finds the page for u under its own key first, then under the key of
// its http or https twin. It returns the key the page was found under.
func (s *Store) lookup(u *url.URL) (string, *model.Page, bool) {
	if u == nil {
		return "", nil, false
	}
	key := Key(u)
	if p, ok := s.pages[key]; ok {
		return key, p, true
	}
	if !isWebScheme(u.Scheme) {
		return "", nil, false
	}
	twin := "https"
	if strings.EqualFold(u.Scheme, "https") {
		twin = "http"
	}
	key = Key(withScheme(u, twin))
	p, ok := s.pages[key]
	return key, p, ok
}

// Set stores p under u, replacing any previous page while keeping its
// position in the iteration order.
func (s *Store) Set(u *url.URL, p *model.Page) {
	s.setKey(Key(u), p)
}

func (s *Store) setKey(key string, p *model.Page) {
	if _, ok := s.pages[key]; !ok {
		s.order = append(s.order, key)
	}
	s.pages[key] = p
}

// Delete removes the page stored for u and returns it, or nil when absent.
func (s *Store) Delete(u *url.URL) *model.Page {
	return s.deleteKey(Key(u))
}

func (s *Store) deleteKey(key string) *model.Page {
	p, ok := s.pages[key]
	if !ok {
		return nil
	}
	delete(s.pages, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return p
}

// Has reports whether exactly u (after canonicalisation) is stored.
func (s *Store) Has(u *url.URL) bool {
	_, ok := s.pages[Key(u)]
	return ok
}

// HasPage reports whether u is stored, treating the http and https versions
// of a URL as the same page. Placeholders count as present.
func (s *Store) HasPage(u *url.URL) bool {
	_, _, ok := s.lookup(u)
	return ok
}

// Touch reserves u with a placeholder page.
// An existing page for u is replaced.
func (s *Store) Touch(u *url.URL) {
	s.Set(u, model.NewPlaceholder(u))
}

// TouchKeys reserves every URL in us.
func (s *Store) TouchKeys(us []*url.URL) {
	for _, u := range us {
		s.Touch(u)
	}
}

// Len returns the number of stored pages, placeholders included.
func (s *Store) Len() int {
	return len(s.pages)
}

// Keys returns the canonical keys in insertion order.
func (s *Store) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Each calls fn for every page in insertion order.
func (s *Store) Each(fn func(key string, p *model.Page)) {
	for _, key := range s.Keys() {
		if p, ok := s.pages[key]; ok {
			fn(key, p)
		}
	}
}

// Pages returns the stored pages in insertion order.
func (s *Store) Pages() []*model.Page {
	pages := make([]*model.Page, 0, len(s.order))
	for _, key := range s.order {
		pages = append(pages, s.pages[key])
	}
	return pages
}

// ShortestPaths runs a breadth-first search from root and assigns every
// reachable fetched page its distance from root. Pages that are not reachable
// end with an undefined depth.
//
// A redirect page absorbs no depth: it gets its parent's depth plus one but is
// not expanded, and the page it points to is evaluated at the same depth. A
// redirecting root is resolved the same way, so its target starts at depth 0.
// Redirect chains are followed in a loop that stops on a repeated key.
// Links are looked up scheme-insensitively, like HasPage.
//
// If root is not in the store, ErrRootNotFound is returned and no page is
// modified. Running the search again gives the same result.
func (s *Store) ShortestPaths(root *url.URL) (*Store, error) {
	rootKey, rootPage, ok := s.lookup(root)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	for _, p := range s.pages {
		p.Visited = false
		p.ClearDepth()
	}

	rootPage.SetDepth(0)
	rootPage.Visited = true

	var queue []*model.Page
	if rootPage.Redirect() {
		seen := map[string]struct{}{rootKey: {}}
		if target := s.follow(resolve(rootPage.URL, rootPage.RedirectTo), 0, seen); target != nil {
			queue = append(queue, target)
		}
	} else {
		queue = append(queue, rootPage)
	}

	for len(queue) > 0 {
		page := queue[0]
		queue = queue[1:]
		depth := page.DepthValue() + 1

		for _, link := range page.Links {
			if target := s.follow(link, depth, make(map[string]struct{})); target != nil {
				queue = append(queue, target)
			}
		}
	}

	return s, nil
}

// follow walks from u through stored redirect pages and gives every
// unvisited fetched page on the way depth. It returns the non-redirect page
// the walk ended on, or nil when the walk stopped early. seen holds the keys
// already walked through.
func (s *Store) follow(u *url.URL, depth int, seen map[string]struct{}) *model.Page {
	for u != nil {
		key, target, ok := s.lookup(u)
		if !ok {
			return nil
		}
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}

		if !target.Fetched() || target.Visited {
			return nil
		}
		target.Visited = true
		target.SetDepth(depth)

		if !target.Redirect() {
			return target
		}
		u = resolve(target.URL, target.RedirectTo)
	}
	return nil
}

// Uniq removes redirect pages and collapses the http and https versions of
// the same resource into one entry. The surviving page is the one with the
// smaller defined depth; on a tie https wins, then the page stored first.
// It returns the store for chaining.
func (s *Store) Uniq() *Store {
	winners := make(map[string]string)
	var losers []string

	for _, key := range s.Keys() {
		p := s.pages[key]
		if p.Redirect() {
			losers = append(losers, key)
			continue
		}
		if p.URL == nil || !isWebScheme(p.URL.Scheme) {
			continue
		}

		identity := Key(withScheme(p.URL, "https"))
		current, ok := winners[identity]
		if !ok {
			winners[identity] = key
			continue
		}
		if prefer(p, s.pages[current]) {
			winners[identity] = key
			losers = append(losers, current)
		} else {
			losers = append(losers, key)
		}
	}

	for _, key := range losers {
		s.deleteKey(key)
	}
	return s
}

// prefer reports whether candidate should replace incumbent in Uniq.
// The incumbent was stored first, so it wins every remaining tie.
func prefer(candidate, incumbent *model.Page) bool {
	cd, cok := candidate.Depth()
	id, iok := incumbent.Depth()
	switch {
	case cok && !iok:
		return true
	case !cok && iok:
		return false
	case cok && iok && cd != id:
		return cd < id
	}
	return isHTTPS(candidate) && !isHTTPS(incumbent)
}

func isHTTPS(p *model.Page) bool {
	return p.URL != nil && strings.EqualFold(p.URL.Scheme, "https")
}

// resolve returns target resolved against base when target is relative.
func resolve(base, target *url.URL) *url.URL {
	if target == nil || target.IsAbs() || base == nil {
		return target
	}
	return base.ResolveReference(target)
}
