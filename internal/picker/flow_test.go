package picker

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"testing"
)

func TestSubmitRequiresChoices(t *testing.T) {
	c, fs := newTestClient(t)
	f := NewCreationFlow(c, nil)

	if f.Ready() {
		t.Fatal("empty flow reports ready")
	}
	if err := f.Submit(context.Background()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Submit on empty flow = %v, want ErrIncomplete", err)
	}
	if err := f.RerollName(context.Background()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("RerollName without sex = %v, want ErrIncomplete", err)
	}
	if _, ok := f.Next(); ok {
		t.Fatal("Next without images should report false")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.created) != 0 {
		t.Fatal("incomplete flow posted a bot")
	}
}

func TestCreationFlow(t *testing.T) {
	c, fs := newTestClient(t)
	ctx := context.Background()
	f := NewCreationFlow(c, rand.New(rand.NewPCG(1, 2)))

	if err := f.SetSex(ctx, Male); err != nil {
		t.Fatal(err)
	}
	if sex, ok := f.Sex(); !ok || sex != Male {
		t.Fatalf("Sex() = %v, %v", sex, ok)
	}
	if name, _ := f.Name(); name.Text != "Bob" {
		t.Fatalf("Name() = %+v", name)
	}
	// The random portrait is preselected and the cursor follows it.
	if img, _ := f.Image(); img.ID != 3 {
		t.Fatalf("Image() = %+v", img)
	}
	if f.Cursor() != 2 {
		t.Fatalf("Cursor() = %d, want 2", f.Cursor())
	}

	if img, _ := f.Next(); img.ID != 4 {
		t.Fatalf("Next() = %+v", img)
	}
	if img, _ := f.Next(); img.ID != 1 {
		t.Fatalf("Next() should wrap, got %+v", img)
	}
	if img, _ := f.Prev(); img.ID != 4 {
		t.Fatalf("Prev() should wrap back, got %+v", img)
	}

	if !f.Select(2) {
		t.Fatal("Select(2) failed")
	}
	if f.Select(99) {
		t.Fatal("Select(99) succeeded")
	}

	if err := f.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	got := fs.created[0]
	if got["nameID"] != "11" || got["imageID"] != "2" || got["sex"] != "0" {
		t.Fatalf("posted form = %v", got)
	}
}

func TestShuffleKeepsSelection(t *testing.T) {
	c, _ := newTestClient(t)
	f := NewCreationFlow(c, rand.New(rand.NewPCG(7, 7)))
	if err := f.SetSex(context.Background(), Male); err != nil {
		t.Fatal(err)
	}
	f.Select(1)

	f.Shuffle()

	images := f.Images()
	ids := make([]int, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	for i, want := range []int{1, 2, 3, 4} {
		if sorted[i] != want {
			t.Fatalf("shuffle lost images: %v", ids)
		}
	}

	if img, _ := f.Image(); img.ID != 1 {
		t.Fatalf("selection changed to %+v", img)
	}
	if images[f.Cursor()].ID != 1 {
		t.Fatalf("cursor %d points at %+v, want image 1", f.Cursor(), images[f.Cursor()])
	}
}

func TestSetSexResetsChoices(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	f := NewCreationFlow(c, nil)

	if err := f.SetSex(ctx, Male); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSex(ctx, Female); err != nil {
		t.Fatal(err)
	}
	if name, _ := f.Name(); name.Text != "Alice" {
		t.Fatalf("Name() after switching sex = %+v", name)
	}
	if n := len(f.Images()); n != 2 {
		t.Fatalf("Images() after switching sex has %d entries", n)
	}
	if err := f.RerollName(ctx); err != nil {
		t.Fatal(err)
	}
}
