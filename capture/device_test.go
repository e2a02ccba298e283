package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubStream struct {
	frame  *Frame
	reads  int
	closed bool
}

func (s *stubStream) ReadFrame() (*Frame, error) {
	if s.closed {
		return nil, fmt.Errorf("stream closed")
	}
	s.reads++
	return s.frame, nil
}

func (s *stubStream) Close() error {
	s.closed = true
	return nil
}

type stubProvider struct {
	supported bool
	openFn    func(ctx context.Context) (Stream, error)
	opens     int
}

func (p *stubProvider) Supported() bool { return p.supported }

func (p *stubProvider) Open(ctx context.Context) (Stream, error) {
	p.opens++
	return p.openFn(ctx)
}

func TestRequestUnsupportedNeverPrompts(t *testing.T) {
	provider := &stubProvider{supported: false}
	device := NewDevice(provider)

	err := device.Request(context.Background())
	require.ErrorIs(t, err, ErrCameraUnsupported)
	require.Equal(t, PermissionUnavailable, device.State())
	require.Zero(t, provider.opens)
}

func TestRequestDeniedThenRetryGranted(t *testing.T) {
	stream := &stubStream{frame: NewFrame(2, 2)}
	denied := true
	provider := &stubProvider{
		supported: true,
		openFn: func(ctx context.Context) (Stream, error) {
			if denied {
				return nil, &PermissionError{Reason: DenyPermissionRefused}
			}
			return stream, nil
		},
	}
	device := NewDevice(provider)

	err := device.Request(context.Background())
	require.Error(t, err)
	require.Equal(t, PermissionDenied, device.State())
	require.Equal(t, DenyPermissionRefused, device.Reason())

	var perr *PermissionError
	require.ErrorAs(t, err, &perr)

	// Retry re-enters Requesting and can succeed without any other reset.
	denied = false
	require.NoError(t, device.Request(context.Background()))
	require.Equal(t, PermissionGranted, device.State())
	require.Equal(t, 2, provider.opens)
}

func TestRequestClassifiesUnknownFailures(t *testing.T) {
	provider := &stubProvider{
		supported: true,
		openFn: func(ctx context.Context) (Stream, error) {
			return nil, errors.New("something platform-specific")
		},
	}
	device := NewDevice(provider)

	require.Error(t, device.Request(context.Background()))
	require.Equal(t, PermissionDenied, device.State())
	require.Equal(t, DenyUnknown, device.Reason())
}

func TestRequestReplacementClosesOldStream(t *testing.T) {
	first := &stubStream{frame: NewFrame(2, 2)}
	second := &stubStream{frame: NewFrame(2, 2)}
	streams := []Stream{first, second}
	provider := &stubProvider{
		supported: true,
		openFn: func(ctx context.Context) (Stream, error) {
			s := streams[0]
			streams = streams[1:]
			return s, nil
		},
	}
	device := NewDevice(provider)

	require.NoError(t, device.Request(context.Background()))
	require.NoError(t, device.Request(context.Background()))
	require.True(t, first.closed)
	require.False(t, second.closed)
}

func TestStopReleasesStreamAndResets(t *testing.T) {
	stream := &stubStream{frame: NewFrame(2, 2)}
	provider := &stubProvider{
		supported: true,
		openFn:    func(ctx context.Context) (Stream, error) { return stream, nil },
	}
	device := NewDevice(provider)
	require.NoError(t, device.Request(context.Background()))

	device.Stop()
	require.True(t, stream.closed)
	require.Equal(t, PermissionInitial, device.State())

	// Idempotent.
	device.Stop()
	require.Equal(t, PermissionInitial, device.State())

	_, err := device.ReadFrame()
	require.Error(t, err)
}

func TestDenyReasonMessagesAreDistinct(t *testing.T) {
	seen := map[string]DenyReason{}
	for _, r := range []DenyReason{DenyUnknown, DenyPermissionRefused, DenyNoDevice, DenyUnsupported, DenyDeviceBusy} {
		msg := r.Message()
		require.NotEmpty(t, msg)
		_, dup := seen[msg]
		require.False(t, dup, "duplicate message for %v", r)
		seen[msg] = r
	}
}
