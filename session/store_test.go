package session

import (
	"testing"
	"time"

	"imgshrink/intake"
	"imgshrink/variant"
)

func testSource(filename string) *intake.SourceImage {
	return &intake.SourceImage{
		Width:    100,
		Height:   80,
		ByteSize: 1234,
		MIME:     "image/png",
		Filename: filename,
	}
}

func TestReplaceClearsVariants(t *testing.T) {
	store := NewStore(10, time.Minute)

	sess := store.Replace("client", testSource("a.png"))
	if !store.SetVariants("client", sess.ID, []*variant.Variant{{Label: "100pct_1-2"}}) {
		t.Fatal("SetVariants failed for current session")
	}

	fresh := store.Replace("client", testSource("b.png"))
	if fresh.ID == sess.ID {
		t.Error("replacement must create a new session id")
	}

	got, ok := store.Get("client")
	if !ok {
		t.Fatal("session missing after replace")
	}
	if len(got.Variants) != 0 {
		t.Errorf("got %d variants after replace, want 0", len(got.Variants))
	}
	if got.Source.Filename != "b.png" {
		t.Errorf("got source %q, want b.png", got.Source.Filename)
	}
}

func TestSetVariantsStaleSession(t *testing.T) {
	store := NewStore(10, time.Minute)

	stale := store.Replace("client", testSource("a.png"))
	store.Replace("client", testSource("b.png"))

	if store.SetVariants("client", stale.ID, []*variant.Variant{{Label: "x"}}) {
		t.Error("stale session id must not attach variants")
	}
	got, _ := store.Get("client")
	if len(got.Variants) != 0 {
		t.Errorf("stale result leaked into new session")
	}
}

func TestTTLExpiry(t *testing.T) {
	store := NewStore(10, 10*time.Millisecond)

	store.Replace("client", testSource("a.png"))
	time.Sleep(25 * time.Millisecond)

	if _, ok := store.Get("client"); ok {
		t.Error("expired session still returned")
	}
	if store.Len() != 0 {
		t.Errorf("expired session still counted: len=%d", store.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	store := NewStore(2, time.Minute)

	store.Replace("a", testSource("a.png"))
	store.Replace("b", testSource("b.png"))
	store.Replace("c", testSource("c.png"))

	if _, ok := store.Get("a"); ok {
		t.Error("oldest client should have been evicted")
	}
	if _, ok := store.Get("c"); !ok {
		t.Error("newest client missing")
	}
	if stats := store.GetStats(); stats.EvictionCount != 1 {
		t.Errorf("got %d evictions, want 1", stats.EvictionCount)
	}
}

func TestVariantLookup(t *testing.T) {
	store := NewStore(10, time.Minute)

	sess := store.Replace("client", testSource("a.png"))
	store.SetVariants("client", sess.ID, []*variant.Variant{
		{Label: "100pct_1-2"},
		{Label: "100pct_1-4"},
	})

	got, _ := store.Get("client")
	if _, ok := got.Variant("100pct_1-4"); !ok {
		t.Error("existing label not found")
	}
	if _, ok := got.Variant("100pct_1-8"); ok {
		t.Error("missing label reported found")
	}
}
