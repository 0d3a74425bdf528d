package cookie

import (
	"sync"
	"testing"
)

// TestNew tests seeding the store from a Cookie header value.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("empty seed", func(t *testing.T) {
		t.Parallel()

		s := New("")
		if !s.Empty() {
			t.Error("expected empty store")
		}
		if s.String() != "" {
			t.Errorf("expected empty string, got %q", s.String())
		}
	})

	t.Run("seed keeps order", func(t *testing.T) {
		t.Parallel()

		s := New("session=abc; theme=dark")
		if s.Len() != 2 {
			t.Fatalf("expected 2 cookies, got %d", s.Len())
		}
		if got := s.String(); got != "session=abc; theme=dark" {
			t.Errorf("expected %q, got %q", "session=abc; theme=dark", got)
		}
	})
}

// TestMerge tests applying Set-Cookie values.
func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("adds and overwrites", func(t *testing.T) {
		t.Parallel()

		s := New("a=1")
		s.Merge("b=2; Path=/; HttpOnly", "a=3")

		if got := s.String(); got != "a=3; b=2" {
			t.Errorf("expected %q, got %q", "a=3; b=2", got)
		}
	})

	t.Run("negative max-age deletes", func(t *testing.T) {
		t.Parallel()

		s := New("a=1; b=2")
		s.Merge("a=gone; Max-Age=-1")

		if _, ok := s.Get("a"); ok {
			t.Error("expected cookie a to be removed")
		}
		if got := s.String(); got != "b=2" {
			t.Errorf("expected %q, got %q", "b=2", got)
		}
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Parallel()

		s := New("")
		s.Merge("", "=novalue")

		if !s.Empty() {
			t.Errorf("expected empty store, got %q", s.String())
		}
	})
}

// TestConcurrentMerge tests that the store survives concurrent writers.
func TestConcurrentMerge(t *testing.T) {
	t.Parallel()

	s := New("")
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Merge("shared=1")
			_ = s.String()
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("expected 1 cookie, got %d", s.Len())
	}
}
