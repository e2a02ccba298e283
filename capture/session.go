package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"palmpay/palm"
)

// DefaultGateThreshold is the capture progress required before a gated
// capture is permitted.
const DefaultGateThreshold = 80

// DefaultProcessingPause is the fixed pause between freezing a frame and
// emitting the code. It models a deliberate UX beat; no validation happens
// during it.
const DefaultProcessingPause = 2 * time.Second

var (
	ErrSessionClosed   = errors.New("capture: session closed")
	ErrCaptureInFlight = errors.New("capture: capture already in flight")
)

// LowQualityError reports a capture attempt below the progress gate. It is a
// disabled action with an operator prompt, not a session failure; the session
// stays open and never silently captures a low-quality frame.
type LowQualityError struct {
	Progress int
}

func (e *LowQualityError) Error() string {
	return fmt.Sprintf("capture: scan quality at %d%%, position your palm properly and wait", e.Progress)
}

// Outcome is the result of a completed capture.
type Outcome struct {
	Code string
	// Recognized is true when the code came from an existing registry
	// sample rather than a fresh mint. Always false under TimedPolicy.
	Recognized bool
}

// Resolver turns a frame hash and its encoded bytes into a palm code.
// *palm.Registry satisfies it.
type Resolver interface {
	Resolve(hash string, encodedFrame []byte) (code string, recognized bool, err error)
}

// Policy decides when a session may freeze a frame and what the frozen frame
// yields. Two policies exist and their guarantees differ; call sites choose
// explicitly.
type Policy interface {
	// Observe consumes one scheduler tick's frame.
	Observe(frame *Frame)
	// Ready reports whether a capture may proceed now.
	Ready() bool
	// Progress is the [0,100] indicator shown to the operator.
	Progress() int
	// Score is the latest presence judgment; zero for policies that skip
	// presence analysis.
	Score() Score
	// Resolve turns the frozen frame into a palm code.
	Resolve(frame *Frame) (Outcome, error)
	// Auto reports whether the session should capture on its own once Ready.
	Auto() bool
	// Reset clears accumulated state back to zero.
	Reset()
}

// GatedPolicy is the quality-gated capture flow: presence is scored every
// frame, progress accumulates +10 on detection and decays −5 otherwise
// (clamped to [0,100]), and capture is permitted only at or above the gate.
// The frozen frame is hashed and resolved against the palm registry.
type GatedPolicy struct {
	Threshold int

	resolver Resolver
	progress int
	score    Score
}

func NewGatedPolicy(resolver Resolver) *GatedPolicy {
	if resolver == nil {
		panic("capture: resolver required")
	}
	return &GatedPolicy{Threshold: DefaultGateThreshold, resolver: resolver}
}

func (p *GatedPolicy) Observe(frame *Frame) {
	p.score = Analyze(frame)
	if p.score.Detected {
		p.progress += 10
		if p.progress > 100 {
			p.progress = 100
		}
	} else {
		p.progress -= 5
		if p.progress < 0 {
			p.progress = 0
		}
	}
}

func (p *GatedPolicy) Ready() bool {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultGateThreshold
	}
	return p.progress >= threshold
}

func (p *GatedPolicy) Progress() int { return p.progress }
func (p *GatedPolicy) Score() Score  { return p.score }
func (p *GatedPolicy) Auto() bool    { return false }

func (p *GatedPolicy) Resolve(frame *Frame) (Outcome, error) {
	if frame == nil {
		return Outcome{}, &LowQualityError{Progress: p.progress}
	}
	encoded, err := frame.EncodeJPEG()
	if err != nil {
		return Outcome{}, err
	}
	code, recognized, err := p.resolver.Resolve(palm.HashFrame(encoded), encoded)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Code: code, Recognized: recognized}, nil
}

func (p *GatedPolicy) Reset() {
	p.progress = 0
	p.score = Score{}
}

// TimedPolicy is the countdown flow: it ignores presence scoring entirely,
// counts scheduler ticks, and once the countdown elapses mints a fresh code
// without consulting the registry. Its outcome therefore carries none of
// GatedPolicy's quality or duplicate-recognition guarantees; it exists as a
// deliberate, separately named behavior and must not be treated as an
// equivalent of the gated flow.
type TimedPolicy struct {
	// Ticks is the countdown length in scheduler ticks.
	Ticks int

	nowFn   func() time.Time
	elapsed int
}

func NewTimedPolicy(ticks int) *TimedPolicy {
	if ticks <= 0 {
		ticks = 3
	}
	return &TimedPolicy{Ticks: ticks, nowFn: time.Now}
}

func (p *TimedPolicy) Observe(*Frame) {
	if p.elapsed < p.Ticks {
		p.elapsed++
	}
}

func (p *TimedPolicy) Ready() bool { return p.elapsed >= p.Ticks }

func (p *TimedPolicy) Progress() int {
	progress := p.elapsed * 100 / p.Ticks
	if progress > 100 {
		progress = 100
	}
	return progress
}

func (p *TimedPolicy) Score() Score { return Score{} }
func (p *TimedPolicy) Auto() bool   { return true }

func (p *TimedPolicy) Resolve(*Frame) (Outcome, error) {
	return Outcome{Code: palm.MintCode(p.nowFn())}, nil
}

func (p *TimedPolicy) Reset() { p.elapsed = 0 }

// Session orchestrates a device, a policy and the palm machinery into one
// capture flow driven by an external per-frame tick.
type Session struct {
	device *Device
	policy Policy
	pause  time.Duration
	sleep  func(time.Duration)
	logger *slog.Logger

	mu        sync.Mutex
	lastFrame *Frame
	capturing bool
	closed    bool
	closeOnce sync.Once
	stopc     chan struct{}
}

// SessionOption customizes a session.
type SessionOption func(*Session)

// WithProcessingPause overrides the fixed post-capture pause.
func WithProcessingPause(d time.Duration) SessionOption {
	return func(s *Session) { s.pause = d }
}

// WithSleep substitutes the pause clock; tests use it to avoid real waits.
func WithSleep(fn func(time.Duration)) SessionOption {
	return func(s *Session) { s.sleep = fn }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

func NewSession(device *Device, policy Policy, opts ...SessionOption) *Session {
	if device == nil {
		panic("capture: device required")
	}
	if policy == nil {
		panic("capture: policy required")
	}
	s := &Session{
		device: device,
		policy: policy,
		pause:  DefaultProcessingPause,
		sleep:  time.Sleep,
		logger: slog.Default(),
		stopc:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick advances one scheduler tick: read the latest frame and let the policy
// observe it. Ticks are ignored while a capture is in flight, after close, or
// whenever the device is not Granted.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.capturing {
		return
	}
	if s.device.State() != PermissionGranted {
		return
	}
	frame, err := s.device.ReadFrame()
	if err != nil {
		s.logger.Debug("frame read failed", slog.Any("error", err))
		s.policy.Observe(nil)
		return
	}
	s.lastFrame = frame
	s.policy.Observe(frame)
}

// Progress returns the policy's [0,100] indicator.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Progress()
}

// Score returns the latest presence judgment.
func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Score()
}

// Capture freezes the current frame and resolves it to a palm code. Below the
// policy's gate it fails with *LowQualityError and the session stays open.
// On success the fixed processing pause elapses, the session closes (stream
// released, policy reset) and the outcome is returned.
func (s *Session) Capture() (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrSessionClosed
	}
	if s.capturing {
		s.mu.Unlock()
		return Outcome{}, ErrCaptureInFlight
	}
	if !s.policy.Ready() {
		progress := s.policy.Progress()
		s.mu.Unlock()
		return Outcome{}, &LowQualityError{Progress: progress}
	}
	s.capturing = true
	frame := s.lastFrame
	s.mu.Unlock()

	out, err := s.policy.Resolve(frame)
	if err != nil {
		s.mu.Lock()
		s.capturing = false
		s.mu.Unlock()
		return Outcome{}, err
	}

	s.sleep(s.pause)
	s.Close()
	return out, nil
}

// Close halts the session on any trigger: it releases the stream
// synchronously, resets the policy and drops the frozen frame. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.lastFrame = nil
		s.policy.Reset()
		s.mu.Unlock()
		s.device.Stop()
		close(s.stopc)
	})
}

// Run drives the session from an external tick source until the context is
// cancelled, the session is closed, or a capture completes. triggers carries
// explicit operator capture requests; gated sessions complete through it,
// auto (timed) sessions complete on their own once their countdown elapses.
// A below-gate trigger is reported and ignored, matching the disabled-button
// behavior.
func (s *Session) Run(ctx context.Context, ticks <-chan time.Time, triggers <-chan struct{}) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return Outcome{}, ctx.Err()
		case <-s.stopc:
			return Outcome{}, ErrSessionClosed
		case <-ticks:
			s.Tick()
			if s.policy.Auto() && s.policy.Ready() {
				return s.Capture()
			}
		case <-triggers:
			out, err := s.Capture()
			if err != nil {
				var lq *LowQualityError
				if errors.As(err, &lq) {
					s.logger.Info("capture not ready", slog.Int("progress", lq.Progress))
					continue
				}
				return Outcome{}, err
			}
			return out, nil
		}
	}
}
