package cache

import (
	"testing"
	"time"
)

func TestStoreGetSet(t *testing.T) {
	s := New[int](4, time.Minute)

	if _, ok := s.Get("missing"); ok {
		t.Fatal("empty store should miss")
	}

	s.Set("a", 1)
	got, ok := s.Get("a")
	if !ok || got != 1 {
		t.Fatalf("expected 1, got %d (hit=%v)", got, ok)
	}

	s.Set("a", 2)
	if got, _ := s.Get("a"); got != 2 {
		t.Fatalf("overwrite should replace the value, got %d", got)
	}
	if s.Len() != 1 {
		t.Fatalf("overwrite must not grow the store, len=%d", s.Len())
	}
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := New[string](2, time.Minute)

	s.Set("a", "one")
	s.Set("b", "two")
	s.Get("a") // refresh a, making b the eviction candidate
	s.Set("c", "three")

	if _, ok := s.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("a was recently used and should survive")
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatal("c was just added and should survive")
	}
}

func TestStoreExpiry(t *testing.T) {
	s := New[int](4, 10*time.Millisecond)

	s.Set("a", 1)
	s.Set("b", 2)
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get("a"); ok {
		t.Fatal("expired entry should miss")
	}
	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("sweep should remove the remaining expired entry, removed %d", removed)
	}
	if s.Len() != 0 {
		t.Fatalf("store should be empty after sweep, len=%d", s.Len())
	}
}

func TestStoreDelete(t *testing.T) {
	s := New[int](4, time.Minute)

	s.Set("a", 1)
	s.Delete("a")
	s.Delete("a") // deleting an absent key is a no-op

	if _, ok := s.Get("a"); ok {
		t.Fatal("deleted entry should miss")
	}
}

func TestJanitorSweepsRegisteredStores(t *testing.T) {
	s := New[int](4, time.Millisecond)
	j := NewJanitor()
	j.Register(s)
	j.Start(5 * time.Millisecond)
	defer j.Stop()

	s.Set("a", 1)

	deadline := time.After(time.Second)
	for s.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never swept the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
