package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// PermissionState tracks the camera permission lifecycle. Granted is the only
// state in which a live stream exists.
type PermissionState int

const (
	PermissionInitial PermissionState = iota
	PermissionRequesting
	PermissionGranted
	PermissionDenied
	PermissionUnavailable
)

func (s PermissionState) String() string {
	switch s {
	case PermissionInitial:
		return "initial"
	case PermissionRequesting:
		return "requesting"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	case PermissionUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("PermissionState(%d)", int(s))
	}
}

// DenyReason classifies why a stream request failed.
type DenyReason int

const (
	DenyUnknown DenyReason = iota
	DenyPermissionRefused
	DenyNoDevice
	DenyUnsupported
	DenyDeviceBusy
)

// Message is the operator-facing explanation for a denial.
func (r DenyReason) Message() string {
	switch r {
	case DenyPermissionRefused:
		return "Camera permission denied. Please allow camera access and try again."
	case DenyNoDevice:
		return "No camera found on this device."
	case DenyUnsupported:
		return "Camera is not supported on this device."
	case DenyDeviceBusy:
		return "Camera is already in use by another application."
	default:
		return "Unable to access camera. Please check your device settings and try again."
	}
}

// ErrCameraUnsupported is returned by Request when the platform exposes no
// camera capability at all; no permission prompt is ever shown in that case.
var ErrCameraUnsupported = errors.New("capture: camera not supported on this device")

// PermissionError is a classified stream-acquisition failure. Providers
// return it so the device can map platform errors onto the deny taxonomy;
// unclassified errors map to DenyUnknown.
type PermissionError struct {
	Reason DenyReason
	Err    error
}

func (e *PermissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s: %v", e.Reason.Message(), e.Err)
	}
	return "capture: " + e.Reason.Message()
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Stream is a live video acquisition. Whatever opens it must guarantee Close
// on every exit path; a lingering camera grab is user-visible and
// privacy-sensitive.
type Stream interface {
	// ReadFrame returns the most recent frame. It never blocks longer than
	// one display refresh.
	ReadFrame() (*Frame, error)
	Close() error
}

// MediaProvider abstracts the platform camera: capability probing plus the
// permission-prompting stream acquisition.
type MediaProvider interface {
	Supported() bool
	Open(ctx context.Context) (Stream, error)
}

// Device owns the permission state machine Initial → Requesting →
// {Granted | Denied | Unavailable} and the stream handle that exists while
// Granted.
type Device struct {
	provider MediaProvider

	mu     sync.Mutex
	state  PermissionState
	reason DenyReason
	stream Stream
}

func NewDevice(provider MediaProvider) *Device {
	if provider == nil {
		panic("capture: media provider required")
	}
	return &Device{provider: provider, state: PermissionInitial}
}

// Request is the explicit "allow camera" action. It probes capability,
// enters Requesting, and resolves to Granted, Denied (with a classified
// reason) or Unavailable. A successful request replaces and releases any
// previously held stream. Request may be re-invoked after a denial; it
// re-enters Requesting without any other reset.
func (d *Device) Request(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.provider.Supported() {
		d.state = PermissionUnavailable
		d.reason = DenyUnsupported
		return ErrCameraUnsupported
	}

	d.state = PermissionRequesting
	stream, err := d.provider.Open(ctx)
	if err != nil {
		d.state = PermissionDenied
		var perr *PermissionError
		if errors.As(err, &perr) {
			d.reason = perr.Reason
		} else {
			d.reason = DenyUnknown
		}
		return fmt.Errorf("request camera: %w", err)
	}

	if d.stream != nil {
		_ = d.stream.Close()
	}
	d.stream = stream
	d.state = PermissionGranted
	d.reason = DenyUnknown
	return nil
}

// Stop releases the stream if one is held and returns the device to Initial.
// It is idempotent and safe to call from any state; every code path that
// opened the stream must reach it.
func (d *Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream != nil {
		_ = d.stream.Close()
		d.stream = nil
	}
	d.state = PermissionInitial
	d.reason = DenyUnknown
}

// State returns the current permission state.
func (d *Device) State() PermissionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reason returns the deny classification; meaningful only while Denied or
// Unavailable.
func (d *Device) Reason() DenyReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}

// ReadFrame pulls the latest frame from the live stream. It fails unless the
// device is Granted.
func (d *Device) ReadFrame() (*Frame, error) {
	d.mu.Lock()
	stream := d.stream
	state := d.state
	d.mu.Unlock()
	if state != PermissionGranted || stream == nil {
		return nil, fmt.Errorf("read frame: device is %s, not granted", state)
	}
	return stream.ReadFrame()
}
