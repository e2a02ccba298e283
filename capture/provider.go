package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "image/jpeg"
	_ "image/png"
)

// FileProvider simulates a camera by replaying image files from a directory.
// The terminal daemon uses it where no real camera integration exists; each
// ReadFrame serves the next image in name order, wrapping around.
type FileProvider struct {
	Dir string
}

func (p *FileProvider) Supported() bool {
	return p.Dir != ""
}

func (p *FileProvider) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PermissionError{Reason: DenyNoDevice, Err: err}
		}
		if os.IsPermission(err) {
			return nil, &PermissionError{Reason: DenyPermissionRefused, Err: err}
		}
		return nil, &PermissionError{Reason: DenyUnknown, Err: err}
	}

	var frames []*Frame
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		f, err := decodeFrame(filepath.Join(p.Dir, name))
		if err != nil {
			continue
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return nil, &PermissionError{Reason: DenyNoDevice, Err: fmt.Errorf("no decodable frames in %s", p.Dir)}
	}
	return &fileStream{frames: frames}, nil
}

func decodeFrame(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

type fileStream struct {
	mu     sync.Mutex
	frames []*Frame
	next   int
	closed bool
}

func (s *fileStream) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("read frame: stream closed")
	}
	frame := s.frames[s.next%len(s.frames)]
	s.next++
	return frame, nil
}

func (s *fileStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
