// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/procgroup"
	"github.com/rs/zerolog"
)

const (
	defaultFirstFrameTimeout = 10 * time.Second
	defaultStopGrace         = 2 * time.Second
	maxFrameBytes            = 16 << 20
	stderrTailBytes          = 4 << 10
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegDevice captures from a V4L2 device through an ffmpeg child process
// that emits an MJPEG stream on stdout. Frame returns the latest complete frame.
type FFmpegDevice struct {
	Path              string
	Bin               string
	FrameRate         int
	FirstFrameTimeout time.Duration
}

// Name implements Device.
func (d *FFmpegDevice) Name() string { return "ffmpeg:" + d.Path }

// Open implements Device.
func (d *FFmpegDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	binPath, err := d.resolve()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(binPath, d.args(c)...)
	procgroup.Set(cmd)

	pr, pw := io.Pipe()
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stdout = pw
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	s := &ffmpegStream{
		cmd:        cmd,
		stderr:     stderr,
		waitCh:     make(chan error, 1),
		exited:     make(chan struct{}),
		firstFrame: make(chan struct{}),
		w:          c.Width,
		h:          c.Height,
		logger:     log.WithComponent("camera").With().Str(log.FieldDevice, d.Path).Logger(),
	}
	go s.readFrames(pr)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		s.waitCh <- err
		close(s.exited)
	}()

	timeout := d.FirstFrameTimeout
	if timeout <= 0 {
		timeout = defaultFirstFrameTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.firstFrame:
		return s, nil
	case <-s.exited:
		_ = s.Close()
		return nil, classifyFFmpegFailure(stderr.String())
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	case <-timer.C:
		_ = s.Close()
		return nil, fmt.Errorf("%w: no frame within %s", ErrDeviceUnavailable, timeout)
	}
}

func (d *FFmpegDevice) args(c Constraints) []string {
	rate := d.FrameRate
	if rate <= 0 {
		rate = 15
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-framerate", strconv.Itoa(rate)}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	return append(args, "-i", d.Path, "-f", "image2pipe", "-c:v", "mjpeg", "-q:v", "3", "pipe:1")
}

// Probe checks that ffmpeg is installed and the device node can be opened.
func (d *FFmpegDevice) Probe(context.Context) error {
	_, err := d.resolve()
	return err
}

func (d *FFmpegDevice) resolve() (string, error) {
	bin := d.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg not found: %v", ErrDeviceUnavailable, err)
	}
	if err := probeDevice(d.Path); err != nil {
		return "", err
	}
	return binPath, nil
}

// probeDevice maps filesystem access problems to camera errors before ffmpeg runs.
func probeDevice(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s does not exist", ErrDeviceUnavailable, path)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
}

func classifyFFmpegFailure(stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "permission denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	case strings.Contains(lower, "device or resource busy"):
		return fmt.Errorf("%w: %s", ErrDeviceBusy, msg)
	default:
		return fmt.Errorf("%w: ffmpeg exited: %s", ErrDeviceUnavailable, msg)
	}
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	waitCh chan error
	exited chan struct{}
	logger zerolog.Logger

	firstFrame chan struct{}
	firstOnce  sync.Once
	closeOnce  sync.Once

	mu     sync.Mutex
	latest []byte
	w, h   int
	closed bool
}

func (s *ffmpegStream) readFrames(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxFrameBytes)
	sc.Split(splitJPEG)
	for sc.Scan() {
		frame := bytes.Clone(sc.Bytes())
		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
		s.firstOnce.Do(func() { close(s.firstFrame) })
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "camera.read_failed").Msg("camera frame reader stopped")
		_, _ = io.Copy(io.Discard, r)
	}
}

func (s *ffmpegStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data, closed := s.latest, s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrNoStream
	}
	select {
	case <-s.exited:
		return nil, fmt.Errorf("%w: ffmpeg exited", ErrNoStream)
	default:
	}
	if data == nil {
		return nil, ErrNoStream
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode camera frame: %w", err)
	}
	s.mu.Lock()
	b := img.Bounds()
	s.w, s.h = b.Dx(), b.Dy()
	s.mu.Unlock()
	return img, nil
}

func (s *ffmpegStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (s *ffmpegStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		err = procgroup.Terminate(s.cmd, s.waitCh, defaultStopGrace)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// ffmpeg exits non-zero on SIGTERM; not a close failure.
			err = nil
		}
	})
	return err
}

// splitJPEG is a bufio.SplitFunc yielding complete JPEG images (SOI..EOI).
// Entropy-coded data stuffs 0xFF bytes, so EOI only occurs as a marker.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		if len(data) > 1 {
			// keep a trailing 0xFF that may begin an SOI
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
