package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/teslashibe/go-rover/pkg/perception"
	"gocv.io/x/gocv"
)

// Playback replays a fixed sequence of depth frames. It backs recorded
// fixture runs and lets higher layers run without camera hardware.
type Playback struct {
	frames []*perception.DepthFrame
	index  int
	loop   bool
	mu     sync.Mutex
}

var _ DepthSource = (*Playback)(nil)

// NewPlayback creates a playback source over the given frames.
// With loop set, the sequence restarts after the last frame.
func NewPlayback(frames []*perception.DepthFrame, loop bool) *Playback {
	return &Playback{frames: frames, loop: loop}
}

// DepthFrame returns the next frame in the sequence. A nil frame with a
// nil error signals the end of a non-looping sequence.
func (p *Playback) DepthFrame() (*perception.DepthFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) == 0 {
		return nil, nil
	}
	if p.index >= len(p.frames) {
		if !p.loop {
			return nil, nil
		}
		p.index = 0
	}

	// Clone so a consumer cannot mutate the recorded sequence.
	frame := p.frames[p.index].Clone()
	p.index++
	return frame, nil
}

// Reset restarts playback from the beginning.
func (p *Playback) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = 0
}

// Close implements DepthSource.
func (p *Playback) Close() error { return nil }

// OpenFixtures loads every 16-bit PNG in dir (sorted by name) into a
// looping playback source, one recorded depth frame per file.
func OpenFixtures(dir string) (*Playback, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no depth fixtures in %s", dir)
	}

	var frames []*perception.DepthFrame
	for _, name := range names {
		mat := gocv.IMRead(filepath.Join(dir, name), gocv.IMReadAnyDepth)
		if mat.Empty() {
			mat.Close()
			return nil, fmt.Errorf("decode fixture %s failed", name)
		}
		frame, err := matToDepth(mat)
		mat.Close()
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", name, err)
		}
		frames = append(frames, frame)
	}

	return NewPlayback(frames, true), nil
}
