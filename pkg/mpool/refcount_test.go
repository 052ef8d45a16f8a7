package mpool

import "testing"

func TestRefCountedLifecycle(t *testing.T) {
	arena := NewArena[widget]()
	destroyed := 0

	rc, err := RefCreate(arena, func(w *widget) error {
		w.n = 7
		return nil
	}, func(w *widget) { destroyed++ })
	if err != nil {
		t.Fatalf("RefCreate: %v", err)
	}
	if rc.Count() != 1 {
		t.Fatalf("count = %d, want 1", rc.Count())
	}

	dup := rc.Duplicate()
	if rc.Count() != 2 || dup.Count() != 2 {
		t.Fatalf("count after duplicate = %d/%d, want 2/2", rc.Count(), dup.Count())
	}

	if w, ok := rc.Get(); !ok || w.n != 7 {
		t.Fatalf("Get() = %v, %v, want 7, true", w, ok)
	}

	if rc.Release() {
		t.Fatalf("Release() on first duplicate should not be final")
	}
	if destroyed != 0 {
		t.Fatalf("destroy called early")
	}

	if !dup.Release() {
		t.Fatalf("Release() on last duplicate should be final")
	}
	if destroyed != 1 {
		t.Fatalf("destroy count = %d, want 1", destroyed)
	}

	if _, ok := rc.Get(); ok {
		t.Fatalf("Get() after final release should fail")
	}
}

func TestRefCountedDoubleReleaseIsNoop(t *testing.T) {
	arena := NewArena[widget]()
	rc, err := RefCreate(arena, nil, nil)
	if err != nil {
		t.Fatalf("RefCreate: %v", err)
	}
	if !rc.Release() {
		t.Fatalf("first release should be final")
	}
	if rc.Release() {
		t.Fatalf("second release should be a no-op, not final")
	}
}
