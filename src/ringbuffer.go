package looper

/*------------------------------------------------------------------
 *
 * Purpose:	In-memory backing stores for capture and playback, per
 *		Design Notes §9: "a pure in-memory ring of two
 *		preallocated stereo-float32 buffers is equivalent and
 *		preferable" to the file-backed form of the original.
 *
 * Description:	CaptureStore is the single temp recording buffer of
 *		spec.md §3 (one writer: capture daemon; one reader: mix
 *		engine, only after the capture flag falls). PlaybackStore
 *		is one of the two double-buffered stores of spec.md §4.C
 *		(one writer: mix engine; one reader: playback producer).
 *
 *------------------------------------------------------------------*/

import "sync"

// CaptureStore accumulates stereo float32 frames for the take currently
// being recorded. Truncate is called when the capture flag rises; Append
// is called by the capture daemon for each input block; Frames is read by
// the mix engine only after the capture flag has fallen.
type CaptureStore struct {
	mu     sync.Mutex
	frames []float32
}

// Truncate discards any previously captured frames.
func (c *CaptureStore) Truncate() {
	c.mu.Lock()
	c.frames = c.frames[:0]
	c.mu.Unlock()
}

// Append adds one block of interleaved stereo frames.
func (c *CaptureStore) Append(block []float32) {
	c.mu.Lock()
	c.frames = append(c.frames, block...)
	c.mu.Unlock()
}

// Frames returns a copy of everything captured since the last Truncate.
func (c *CaptureStore) Frames() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out = make([]float32, len(c.frames))
	copy(out, c.frames)

	return out
}

// PlaybackStore holds one complete loop (or half-loop) buffer ready to be
// streamed out in fixed-size blocks by the playback producer.
type PlaybackStore struct {
	mu     sync.RWMutex
	frames []float32 // interleaved stereo
}

// Set replaces the buffer wholesale. Called by the mix engine only while
// this store is the *inactive* side (spec.md invariant 5).
func (p *PlaybackStore) Set(frames []float32) {
	p.mu.Lock()
	p.frames = frames
	p.mu.Unlock()
}

// Len returns the number of stereo frames currently held.
func (p *PlaybackStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.frames) / 2
}

// Block copies up to n frames starting at frame offset into dst (stereo
// interleaved, so len(dst) should be n*2), returning the number of frames
// copied.
func (p *PlaybackStore) Block(offset, n int, dst []float32) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var totalFrames = len(p.frames) / 2
	if offset >= totalFrames {
		return 0
	}

	var avail = totalFrames - offset
	if n > avail {
		n = avail
	}

	copy(dst, p.frames[offset*2:(offset+n)*2])

	return n
}

// PlaybackSides is the double-buffered pair from spec.md §4.C, selected by
// the side flag.
type PlaybackSides struct {
	stores  [2]PlaybackStore
	current int32 // 0 or 1, read by playback producer, written by mix engine
	mu      sync.Mutex
}

// Active returns the store the playback producer should currently read.
func (s *PlaybackSides) Active() *PlaybackStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &s.stores[s.current]
}

// Inactive returns the store the mix engine should write the next loop
// into (spec.md invariant 5: the mix engine never writes to the side the
// player is reading).
func (s *PlaybackSides) Inactive() *PlaybackStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &s.stores[1-s.current]
}

// Flip switches the side flag, making the previously-inactive store
// active. Called at end-of-file of the currently active store (spec.md
// ordering guarantee 3).
func (s *PlaybackSides) Flip() {
	s.mu.Lock()
	s.current = 1 - s.current
	s.mu.Unlock()
}
