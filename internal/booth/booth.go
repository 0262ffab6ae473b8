// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package booth wires the camera, sticker store, capture sequencer and
// composite renderer into one photo-booth session.
package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/ManuGH/partybooth/internal/booth/camera"
	"github.com/ManuGH/partybooth/internal/booth/capture"
	"github.com/ManuGH/partybooth/internal/booth/composite"
	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrNoArtifact is returned when no finished collage is available.
	ErrNoArtifact = errors.New("booth: no artifact")
	// ErrNoFrame is returned for a frame index that was not captured.
	ErrNoFrame = errors.New("booth: no such frame")
	// ErrInvalidViewport is returned by SetViewport for an empty box.
	ErrInvalidViewport = errors.New("booth: invalid viewport")
	// ErrSuperseded is returned by StartCamera when Retake or Close ran meanwhile.
	ErrSuperseded = errors.New("booth: superseded by reset")
)

// Compositor renders captured frames into a collage.
type Compositor interface {
	Render(ctx context.Context, frames []capture.Frame) (*composite.Artifact, error)
}

// Options configure a Booth.
type Options struct {
	ID          string
	Device      camera.Device
	Constraints camera.Constraints
	Art         capture.ArtSource
	Compositor  Compositor
	Capture     capture.Config
	Sleeper     capture.Sleeper
	Now         func() time.Time
}

// Snapshot is the observable state of a booth.
type Snapshot struct {
	ID            string        `json:"id"`
	State         State         `json:"state"`
	Reason        Reason        `json:"reason,omitempty"`
	Camera        camera.State  `json:"camera"`
	Phase         capture.Phase `json:"phase"`
	Message       string        `json:"message,omitempty"`
	Flash         bool          `json:"flash"`
	Shot          int           `json:"shot"`
	Total         int           `json:"total"`
	Frames        int           `json:"frames"`
	Stickers      int           `json:"stickers"`
	ArtifactReady bool          `json:"artifactReady"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// run is one capture-and-composite pass.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error // written before done is closed
}

// Booth is one photo-booth session. All methods are safe for concurrent use.
type Booth struct {
	id       string
	opts     Options
	camera   *camera.Session
	stickers *sticker.Store
	logger   zerolog.Logger

	mu         sync.Mutex
	state      State
	reason     Reason
	status     capture.Status
	viewport   capture.Viewport
	frames     []capture.Frame
	artifact   *composite.Artifact
	run        *run
	epoch      uint64
	lastActive time.Time
}

// New creates an idle booth.
func New(opts Options) (*Booth, error) {
	var errs []error
	if opts.Device == nil {
		errs = append(errs, errors.New("camera device is required"))
	}
	if opts.Art == nil {
		errs = append(errs, errors.New("sticker art is required"))
	}
	if opts.Compositor == nil {
		errs = append(errs, errors.New("compositor is required"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("booth: %w", errors.Join(errs...))
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Constraints == (camera.Constraints{}) {
		opts.Constraints = camera.DefaultConstraints()
	}
	if opts.Capture.Shots == 0 {
		opts.Capture = capture.DefaultConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	b := &Booth{
		id:       opts.ID,
		opts:     opts,
		camera:   camera.NewSession(opts.Device, opts.Constraints),
		stickers: sticker.NewStore(),
		logger:   log.WithComponent("booth").With().Str(log.FieldBoothID, opts.ID).Logger(),
		state:    StateIdle,
		status:   capture.Status{Phase: capture.PhaseIdle},
		viewport: capture.DefaultViewport(),
	}
	b.lastActive = opts.Now()
	return b, nil
}

// ID returns the session id.
func (b *Booth) ID() string { return b.id }

// StartCamera acquires the camera. It is a no-op when the camera is already live.
func (b *Booth) StartCamera(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateReady {
		b.lastActive = b.opts.Now()
		b.mu.Unlock()
		return nil
	}
	if err := b.applyLocked(EvStartCamera); err != nil {
		b.mu.Unlock()
		return err
	}
	epoch := b.epoch
	b.mu.Unlock()

	_, err := b.camera.Start(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.epoch != epoch {
		return ErrSuperseded
	}

	var ev EventKind
	switch {
	case err == nil:
		ev = EvCameraReady
	case errors.Is(err, camera.ErrPermissionDenied):
		ev = EvCameraDenied
	case ctx.Err() != nil:
		ev = EvCameraCanceled
	default:
		ev = EvCameraFailed
	}
	if applyErr := b.applyLocked(ev); applyErr != nil {
		return applyErr
	}
	return err
}

// PlaceSticker adds a sticker at the default anchor.
func (b *Booth) PlaceSticker(kind sticker.Kind) (sticker.RenderID, error) {
	if err := b.touch(); err != nil {
		return 0, err
	}
	return b.stickers.Place(kind)
}

// MoveSticker repositions a placed sticker.
func (b *Booth) MoveSticker(id sticker.RenderID, pos image.Point) error {
	if err := b.touch(); err != nil {
		return err
	}
	return b.stickers.Move(id, pos)
}

// ClearStickers removes every placement.
func (b *Booth) ClearStickers() error {
	if err := b.touch(); err != nil {
		return err
	}
	b.stickers.Clear()
	return nil
}

// Stickers lists placements in z-order.
func (b *Booth) Stickers() []sticker.Placement {
	return b.stickers.List()
}

// SetViewport records the on-screen video box used when flattening shots.
func (b *Booth) SetViewport(vp capture.Viewport) error {
	if !vp.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidViewport, vp.Display)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return ErrClosed
	}
	b.viewport = vp
	b.lastActive = b.opts.Now()
	return nil
}

// Viewport returns the current video box.
func (b *Booth) Viewport() capture.Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// TakePhotos starts the timed sequence on its own goroutine and returns at once.
// The camera must be ready. Progress is visible through Snapshot; Wait blocks
// until the collage is rendered or the run ends.
func (b *Booth) TakePhotos(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{cancel: cancel, done: make(chan struct{})}

	logger := log.WithContext(ctx, b.logger)
	seq, err := capture.NewSequencer(b.opts.Capture, capture.Deps{
		Frames:   b.camera,
		Stickers: b.stickers,
		Art:      b.opts.Art,
		Viewport: b.Viewport,
		Release:  b.releaseCamera,
		OnFrame:  func(f capture.Frame) { b.addFrame(r, f) },
		Sleeper:  b.opts.Sleeper,
		Observer: func(st capture.Status) { b.observe(r, st) },
		Now:      b.opts.Now,
		Logger:   &logger,
	})
	if err != nil {
		cancel()
		return err
	}

	b.mu.Lock()
	if _, ok := TransitionFor(b.state, EvCaptureStarted); !ok {
		err := illegal(b.state, EvCaptureStarted)
		b.mu.Unlock()
		cancel()
		return err
	}
	if err := b.camera.MarkCapturing(); err != nil {
		b.mu.Unlock()
		cancel()
		return err
	}
	_ = b.applyLocked(EvCaptureStarted)
	b.run = r
	b.frames = nil
	b.artifact = nil
	b.status = capture.Status{Phase: capture.PhaseRunning, Total: b.opts.Capture.Shots}
	b.mu.Unlock()

	go b.execute(runCtx, r, seq)
	return nil
}

func (b *Booth) execute(ctx context.Context, r *run, seq *capture.Sequencer) {
	defer close(r.done)
	defer r.cancel()

	ctx, span := telemetry.Tracer("partybooth/booth").Start(ctx, "booth.capture")
	span.SetAttributes(telemetry.CaptureAttributes(b.id, b.opts.Device.Name(), b.opts.Capture.Shots)...)
	defer func() {
		span.SetAttributes(attribute.String(telemetry.BoothStateKey, string(b.Snapshot().State)))
		if r.err != nil {
			span.RecordError(r.err)
			span.SetStatus(codes.Error, r.err.Error())
		}
		span.End()
	}()

	frames, err := seq.Run(ctx)
	if err != nil {
		b.camera.Stop()
		ev := EvCaptureFailed
		if errors.Is(err, capture.ErrAborted) {
			ev = EvCaptureAborted
		}
		b.settle(r, ev, err, func() { b.frames = nil })
		return
	}

	if !b.settle(r, EvCaptureDone, nil, func() { b.frames = frames }) {
		return
	}

	art, err := b.opts.Compositor.Render(ctx, frames)
	if err != nil {
		ev := EvCompositeFailed
		if ctx.Err() != nil {
			ev = EvCaptureAborted
		}
		span.SetAttributes(attribute.String(telemetry.ErrorTypeKey, string(ev)))
		b.settle(r, ev, err, nil)
		return
	}
	span.SetAttributes(attribute.Int(telemetry.RenderBytesKey, len(art.Data)))
	b.settle(r, EvCompositeDone, nil, func() { b.artifact = art })
}

// settle applies ev for run r. It reports false, changing nothing, when r was
// superseded by Retake or Close.
func (b *Booth) settle(r *run, ev EventKind, err error, mutate func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.err = err
	if b.run != r {
		if r.err == nil {
			r.err = capture.ErrAborted
		}
		return false
	}
	if applyErr := b.applyLocked(ev); applyErr != nil {
		b.logger.Error().Err(applyErr).Str(log.FieldEvent, "booth.run.illegal").Msg("run settled in unexpected state")
		return false
	}
	if mutate != nil {
		mutate()
	}
	if err != nil {
		b.logger.Warn().Err(err).
			Str(log.FieldEvent, "booth.run."+string(ev)).
			Str(log.FieldReason, string(b.reason)).
			Msg("booth run ended")
	}
	return true
}

func (b *Booth) observe(r *run, st capture.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run != r {
		return
	}
	b.status = st
	b.lastActive = b.opts.Now()
}

func (b *Booth) addFrame(r *run, f capture.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run != r {
		return
	}
	b.frames = append(b.frames, f)
}

// releaseCamera runs after the last shot, before assembling.
func (b *Booth) releaseCamera() {
	if err := b.camera.MarkCaptured(); err != nil {
		b.logger.Debug().Err(err).Msg("camera not capturing at release")
	}
	b.camera.Stop()
}

// Wait blocks until the current run finishes and returns its error.
// Without a run it returns nil immediately.
func (b *Booth) Wait(ctx context.Context) error {
	b.mu.Lock()
	r := b.run
	b.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retake aborts any running sequence, releases the camera and discards
// frames, the collage and stickers. The booth returns to idle.
func (b *Booth) Retake() error {
	r, err := b.reset(EvRetake)
	if err != nil {
		return err
	}
	b.stickers.Clear()
	b.drain(r)
	b.camera.Reset()
	b.logger.Info().Str(log.FieldEvent, "booth.retake").Msg("booth reset for retake")
	return nil
}

// Close releases everything. It is idempotent.
func (b *Booth) Close() error {
	r, err := b.reset(EvClose)
	if errors.Is(err, ErrClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	b.stickers.Clear()
	b.drain(r)
	b.camera.Stop()
	b.logger.Info().Str(log.FieldEvent, "booth.closed").Msg("booth closed")
	return nil
}

func (b *Booth) reset(ev EventKind) (*run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.applyLocked(ev); err != nil {
		return nil, err
	}
	r := b.run
	b.run = nil
	b.epoch++
	b.frames = nil
	b.artifact = nil
	b.status = capture.Status{Phase: capture.PhaseIdle}
	return r, nil
}

func (b *Booth) drain(r *run) {
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// Artifact returns the finished collage.
func (b *Booth) Artifact() (*composite.Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateComplete || b.artifact == nil {
		return nil, ErrNoArtifact
	}
	return b.artifact, nil
}

// Frames returns the frames captured so far in shot order.
func (b *Booth) Frames() []capture.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]capture.Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// Frame returns frame i.
func (b *Booth) Frame(i int) (capture.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.frames) {
		return capture.Frame{}, fmt.Errorf("%w: %d", ErrNoFrame, i)
	}
	return b.frames[i], nil
}

// Snapshot returns the current observable state.
func (b *Booth) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		ID:            b.id,
		State:         b.state,
		Reason:        b.reason,
		Camera:        b.camera.State(),
		Phase:         b.status.Phase,
		Message:       b.status.Message,
		Flash:         b.status.Flash,
		Shot:          b.status.Shot,
		Total:         b.status.Total,
		Frames:        len(b.frames),
		Stickers:      b.stickers.Len(),
		ArtifactReady: b.state == StateComplete && b.artifact != nil,
		UpdatedAt:     b.lastActive,
	}
}

// LastActive is the time of the last client interaction or run progress.
func (b *Booth) LastActive() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastActive
}

// Busy reports whether a capture run is in flight.
func (b *Booth) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Busy()
}

func (b *Booth) touch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return ErrClosed
	}
	b.lastActive = b.opts.Now()
	return nil
}

func (b *Booth) applyLocked(ev EventKind) error {
	tr, ok := TransitionFor(b.state, ev)
	if !ok {
		return illegal(b.state, ev)
	}
	if tr.From != tr.To {
		b.logger.Debug().
			Str(log.FieldOldState, string(tr.From)).
			Str(log.FieldNewState, string(tr.To)).
			Str(log.FieldEvent, "booth."+string(ev)).
			Msg("booth state changed")
	}
	b.state = tr.To
	b.reason = tr.Reason
	b.lastActive = b.opts.Now()
	return nil
}
