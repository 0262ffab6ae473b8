// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// splitFrame is left half red, right half blue.
func splitFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, blue)
			}
		}
	}
	return img
}

func solid(c color.RGBA, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fakeFrames struct {
	img      image.Image
	failures atomic.Int32 // number of calls that fail before succeeding
	calls    atomic.Int32
}

func (f *fakeFrames) Frame(context.Context) (image.Image, error) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return nil, errors.New("video not ready")
	}
	return f.img, nil
}

type fakeArt map[sticker.Kind]image.Image

func (a fakeArt) Image(k sticker.Kind) (image.Image, error) {
	img, ok := a[k]
	if !ok {
		return nil, sticker.ErrUnknownKind
	}
	return img, nil
}

// instantSleeper records requested pauses without waiting.
type instantSleeper struct {
	mu    sync.Mutex
	total time.Duration
	calls int
}

func (s *instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.total += d
	s.calls++
	s.mu.Unlock()
	return nil
}

func testArt() fakeArt {
	return fakeArt{sticker.Heart: solid(green, 16, 16), sticker.Crown: solid(white, 16, 16)}
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// near reports whether the pixel at (x,y) is within tol of c on every channel.
func near(img image.Image, x, y int, c color.RGBA, tol int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	diff := func(a uint32, want uint8) bool {
		d := int(a>>8) - int(want)
		return d <= tol && d >= -tol
	}
	return diff(r, c.R) && diff(g, c.G) && diff(b, c.B)
}

func TestSequencer_ThreeShotsWithStickers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := sticker.NewStore()
	heartID, _ := store.Place(sticker.Heart)
	crownID, _ := store.Place(sticker.Crown)
	require.NoError(t, store.Move(heartID, image.Pt(10, 10)))
	require.NoError(t, store.Move(crownID, image.Pt(110, 10)))

	var statuses []Status
	released := 0
	sleeper := &instantSleeper{}
	seq, err := NewSequencer(DefaultConfig(), Deps{
		Frames:   &fakeFrames{img: splitFrame(200, 200)},
		Stickers: store,
		Art:      testArt(),
		Viewport: func() Viewport { return Viewport{Display: image.Pt(200, 200)} },
		Release:  func() { released++ },
		Sleeper:  sleeper,
		Observer: func(st Status) {
			statuses = append(statuses, st)
			// the user drags the crown down after the first shot
			if st.Message == "Amazing Shot!" {
				_ = store.Move(crownID, image.Pt(110, 110))
			}
		},
	})
	require.NoError(t, err)

	frames, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, 1, released)

	for i, f := range frames {
		assert.Equal(t, i, f.Index, "frames are in shot order")
		assert.Equal(t, "image/jpeg", f.MIME)
		require.Len(t, f.Stickers, 2)

		img := decode(t, f.Data)
		assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

		// mirrored video: red source half now on the right, blue on the left
		assert.True(t, near(img, 20, 180, blue, 40), "shot %d left side should be blue", i+1)
		assert.True(t, near(img, 180, 180, red, 40) || i > 0, "shot %d right side should be red", i+1)

		// heart never moved
		assert.True(t, near(img, 50, 50, green, 40), "shot %d heart missing", i+1)
	}

	first := decode(t, frames[0].Data)
	assert.True(t, near(first, 150, 50, white, 40), "crown at its first position in shot 1")
	assert.Equal(t, image.Pt(110, 10), frames[0].Stickers[1].Position)

	for _, f := range frames[1:] {
		img := decode(t, f.Data)
		assert.True(t, near(img, 150, 150, white, 40), "crown at its dragged position")
		assert.True(t, near(img, 150, 50, red, 40), "old crown position shows video")
		assert.Equal(t, image.Pt(110, 110), f.Stickers[1].Position)
	}

	// pacing and messages
	tm := DefaultTiming()
	want := tm.Warmup + 3*(tm.Announce+tm.Countdown+tm.Flash+tm.PostShot) + tm.Assemble
	assert.Equal(t, want, sleeper.total)

	var messages []string
	for _, st := range statuses {
		if st.Message != "" && (len(messages) == 0 || messages[len(messages)-1] != st.Message) {
			messages = append(messages, st.Message)
		}
	}
	assert.Equal(t, []string{
		"Get Ready...", "Photo 1 of 3", "Amazing Shot!",
		"Ready for the next one?", "Photo 2 of 3", "Awesome!",
		"Last one, make it count!", "Photo 3 of 3", "Perfect! 🎉",
		MsgAssembling,
	}, messages)
	assert.Equal(t, PhaseDone, statuses[len(statuses)-1].Phase)

	flashes := 0
	for _, st := range statuses {
		if st.Flash {
			flashes++
		}
	}
	assert.Equal(t, 3, flashes)
}

func TestSequencer_ShotCounts(t *testing.T) {
	for n := 1; n <= MaxShots; n++ {
		cfg := DefaultConfig()
		cfg.Shots = n
		seq, err := NewSequencer(cfg, Deps{
			Frames:   &fakeFrames{img: splitFrame(32, 32)},
			Stickers: sticker.NewStore(),
			Art:      testArt(),
			Sleeper:  &instantSleeper{},
		})
		require.NoError(t, err)
		frames, err := seq.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, frames, n)
		for i := range frames {
			assert.Equal(t, i, frames[i].Index)
		}
	}
}

func TestSequencer_RetriesFailedShot(t *testing.T) {
	frames := &fakeFrames{img: splitFrame(32, 32)}
	frames.failures.Store(2)
	seq, err := NewSequencer(DefaultConfig(), Deps{
		Frames:   frames,
		Stickers: sticker.NewStore(),
		Art:      testArt(),
		Sleeper:  &instantSleeper{},
	})
	require.NoError(t, err)

	out, err := seq.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.EqualValues(t, 5, frames.calls.Load())
}

func TestSequencer_FailsAfterRetries(t *testing.T) {
	frames := &fakeFrames{img: splitFrame(32, 32)}
	frames.failures.Store(100)
	released := false
	var last Status
	seq, err := NewSequencer(DefaultConfig(), Deps{
		Frames:   frames,
		Stickers: sticker.NewStore(),
		Art:      testArt(),
		Sleeper:  &instantSleeper{},
		Release:  func() { released = true },
		Observer: func(st Status) { last = st },
	})
	require.NoError(t, err)

	out, err := seq.Run(context.Background())
	require.ErrorIs(t, err, ErrCaptureFailure)
	assert.Nil(t, out, "never a partial frame set")
	assert.EqualValues(t, 3, frames.calls.Load(), "1 attempt + 2 retries")
	assert.False(t, released)
	assert.Equal(t, PhaseFailed, last.Phase)
}

func TestSequencer_AbortMidRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var last Status
	seq, err := NewSequencer(DefaultConfig(), Deps{
		Frames:   &fakeFrames{img: splitFrame(32, 32)},
		Stickers: sticker.NewStore(),
		Art:      testArt(),
		Sleeper:  &instantSleeper{},
		Observer: func(st Status) {
			last = st
			if st.Shot == 2 && st.Message == "Ready for the next one?" {
				cancel()
			}
		},
	})
	require.NoError(t, err)

	out, err := seq.Run(ctx)
	require.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
	assert.Equal(t, PhaseAborted, last.Phase)
}

func TestSequencer_AbortWithWallClockTimers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := DefaultConfig()
	cfg.Timing = Timing{Warmup: time.Hour}
	seq, err := NewSequencer(cfg, Deps{
		Frames:   &fakeFrames{img: splitFrame(8, 8)},
		Stickers: sticker.NewStore(),
		Art:      testArt(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = seq.Run(ctx)
	require.ErrorIs(t, err, ErrAborted)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewSequencer_Invalid(t *testing.T) {
	deps := Deps{Frames: &fakeFrames{}, Stickers: sticker.NewStore(), Art: testArt()}

	cfg := DefaultConfig()
	cfg.Shots = MaxShots + 1
	_, err := NewSequencer(cfg, deps)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSequencer(DefaultConfig(), Deps{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestShotMessages(t *testing.T) {
	pre, post := ShotMessages(0, 1)
	assert.Equal(t, "Get Ready...", pre)
	assert.Equal(t, "Amazing Shot!", post)

	pre, _ = ShotMessages(2, 4)
	assert.Equal(t, "Ready for the next one?", pre)

	pre, post = ShotMessages(3, 4)
	assert.Equal(t, "Last one, make it count!", pre)
	assert.Equal(t, "Perfect! 🎉", post)
}
