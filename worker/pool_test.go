package worker

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"imgshrink/intake"
	"imgshrink/session"
	"imgshrink/variant"
)

func testSource(t *testing.T) *intake.SourceImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	src, err := intake.FromUpload("photo.png", "image/png", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestSubmitAndWait(t *testing.T) {
	store := session.NewStore(10, time.Minute)
	pool := NewPool(2, &variant.Generator{}, store)
	pool.Start()
	defer pool.Stop()

	src := testSource(t)
	sess := store.Replace("client", src)

	sel, err := variant.NewSelection(1.0, []string{"1/2", "1/4"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := pool.SubmitAndWait("client", sess.ID, src, sel)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("job failed: %s", result.Message)
	}
	if len(result.Variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(result.Variants))
	}

	got, _ := store.Get("client")
	if len(got.Variants) != 2 {
		t.Errorf("variants not stored in session: got %d", len(got.Variants))
	}
	if pool.GetCompletedJobs() != 1 {
		t.Errorf("completed count = %d, want 1", pool.GetCompletedJobs())
	}
}

func TestStaleSessionResultDropped(t *testing.T) {
	store := session.NewStore(10, time.Minute)
	pool := NewPool(1, &variant.Generator{}, store)
	pool.Start()
	defer pool.Stop()

	src := testSource(t)
	stale := store.Replace("client", src)
	store.Replace("client", testSource(t)) // re-upload before the job runs

	sel, _ := variant.NewSelection(1.0, []string{"1/4"})
	result, err := pool.SubmitAndWait("client", stale.ID, src, sel)
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("stale job should not succeed")
	}

	got, _ := store.Get("client")
	if len(got.Variants) != 0 {
		t.Error("stale variants leaked into replacement session")
	}
	if pool.GetFailedJobs() != 1 {
		t.Errorf("failed count = %d, want 1", pool.GetFailedJobs())
	}
}
