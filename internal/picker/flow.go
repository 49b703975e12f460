package picker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrIncomplete is returned by Submit until sex, name and image are chosen.
var ErrIncomplete = errors.New("bot creation incomplete: choose sex, name and image")

// CreationFlow holds the choices of one bot creation dialog. It lives as long
// as the dialog and is not safe for concurrent use.
type CreationFlow struct {
	client *Client
	rng    *rand.Rand

	sex    Sex
	hasSex bool

	name    Name
	hasName bool

	images   []Image
	cursor   int
	selected Image
	hasImage bool
}

// NewCreationFlow starts an empty flow. A nil rng is seeded from the clock.
func NewCreationFlow(client *Client, rng *rand.Rand) *CreationFlow {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>32))
	}
	return &CreationFlow{client: client, rng: rng}
}

// SetSex chooses the sex and loads a random name, a random portrait and the
// full portrait list for it. Earlier choices are discarded.
func (f *CreationFlow) SetSex(ctx context.Context, sex Sex) error {
	name, err := f.client.RandomName(ctx, sex)
	if err != nil {
		return fmt.Errorf("random name: %w", err)
	}
	img, err := f.client.RandomImage(ctx, sex)
	if err != nil {
		return fmt.Errorf("random image: %w", err)
	}
	images, err := f.client.Images(ctx, sex)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}

	f.sex, f.hasSex = sex, true
	f.name, f.hasName = name, true
	f.images = images
	f.cursor = 0
	f.selected, f.hasImage = img, true
	f.syncCursor()
	return nil
}

// RerollName replaces the name with another random one.
func (f *CreationFlow) RerollName(ctx context.Context) error {
	if !f.hasSex {
		return ErrIncomplete
	}
	name, err := f.client.RandomName(ctx, f.sex)
	if err != nil {
		return fmt.Errorf("random name: %w", err)
	}
	f.name, f.hasName = name, true
	return nil
}

// Shuffle reorders the portrait list with Fisher-Yates. The selection is
// kept.
func (f *CreationFlow) Shuffle() {
	for i := len(f.images) - 1; i > 0; i-- {
		j := f.rng.IntN(i + 1)
		f.images[i], f.images[j] = f.images[j], f.images[i]
	}
	f.syncCursor()
}

// Next moves the cursor to the following portrait, wrapping around, and
// selects it.
func (f *CreationFlow) Next() (Image, bool) { return f.move(1) }

// Prev moves the cursor to the previous portrait, wrapping around, and
// selects it.
func (f *CreationFlow) Prev() (Image, bool) { return f.move(-1) }

func (f *CreationFlow) move(delta int) (Image, bool) {
	n := len(f.images)
	if n == 0 {
		return Image{}, false
	}
	f.cursor = ((f.cursor+delta)%n + n) % n
	f.selected, f.hasImage = f.images[f.cursor], true
	return f.selected, true
}

// Select chooses the portrait with the given id from the list.
func (f *CreationFlow) Select(imageID int) bool {
	for i, img := range f.images {
		if img.ID == imageID {
			f.cursor = i
			f.selected, f.hasImage = img, true
			return true
		}
	}
	return false
}

// syncCursor points the cursor at the selected portrait when it is listed.
func (f *CreationFlow) syncCursor() {
	if !f.hasImage {
		return
	}
	for i, img := range f.images {
		if img.ID == f.selected.ID {
			f.cursor = i
			return
		}
	}
}

func (f *CreationFlow) Sex() (Sex, bool)   { return f.sex, f.hasSex }
func (f *CreationFlow) Name() (Name, bool) { return f.name, f.hasName }
func (f *CreationFlow) Image() (Image, bool) {
	return f.selected, f.hasImage
}

// Images returns the portrait list in its current order.
func (f *CreationFlow) Images() []Image {
	return append([]Image(nil), f.images...)
}

// Cursor returns the index of the highlighted portrait.
func (f *CreationFlow) Cursor() int { return f.cursor }

// Ready reports whether Submit would post.
func (f *CreationFlow) Ready() bool {
	return f.hasSex && f.hasName && f.hasImage
}

// Submit creates the bot from the current choices.
func (f *CreationFlow) Submit(ctx context.Context) error {
	if !f.Ready() {
		return ErrIncomplete
	}
	return f.client.CreateBot(ctx, f.name.ID, f.selected.ID, f.sex)
}
