package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Absolute-wall-time one-shot timers, per spec.md §4.H.
 *
 * Description:	A monotonic min-heap polled by one goroutine, per Design
 *		Notes §9. Timers are referred to by a TimerHandle so they
 *		can be cancelled (release_back cancelling a pending
 *		half_end_recording/end_recording, per spec.md §5's
 *		Cancellation rules). Callers pass absolute deadlines;
 *		looper.go's bar tick takes its deadline from
 *		BeatClock.TimeAtEndOfLoop, which advances by one loop
 *		duration from the previous deadline rather than from the
 *		moment the timer actually fired, so firing latency does not
 *		accumulate. The deadline is not recomputed from the anchor:
 *		each bar adds one loop duration to the previous deadline.
 *
 *------------------------------------------------------------------*/

import (
	"container/heap"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// TimerHandle identifies a scheduled callback for cancellation.
type TimerHandle uint64

type timerEntry struct {
	at       time.Time
	fn       func()
	handle   TimerHandle
	index    int
	canceled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *timerHeap) Push(x interface{}) { var e = x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() interface{} {
	var old = *h
	var n = len(old)
	var e = old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return e
}

// Scheduler runs callbacks at absolute wall times on a dedicated goroutine.
type Scheduler struct {
	mu      sync.Mutex
	h       timerHeap
	wake    chan struct{}
	nextID  TimerHandle
	entries map[TimerHandle]*timerEntry
	stopped chan struct{}
	log     *log.Logger
}

// NewScheduler starts the poller goroutine and returns the Scheduler.
func NewScheduler() *Scheduler {
	var s = &Scheduler{
		wake:    make(chan struct{}, 1),
		entries: make(map[TimerHandle]*timerEntry),
		stopped: make(chan struct{}),
		log:     Sub("scheduler"),
	}
	heap.Init(&s.h)

	go s.run()

	return s
}

// At schedules fn to run at absolute time t. Returns a handle usable with
// Cancel.
func (s *Scheduler) At(t time.Time, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	var e = &timerEntry{at: t, fn: fn, handle: s.nextID}
	heap.Push(&s.h, e)
	s.entries[e.handle] = e

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return e.handle
}

// Cancel prevents a not-yet-fired timer from running. Safe to call after
// it has already fired (no-op).
func (s *Scheduler) Cancel(h TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[h]; ok {
		e.canceled = true
		delete(s.entries, h)
	}
}

// Stop halts the poller goroutine. No further timers will fire.
func (s *Scheduler) Stop() {
	close(s.stopped)
}

func (s *Scheduler) run() {
	var timer = time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var d = s.nextDelay()
		s.mu.Unlock()

		timer.Reset(d)

		select {
		case <-s.stopped:
			return
		case <-timer.C:
			s.fireDue()
		case <-s.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

func (s *Scheduler) nextDelay() time.Duration {
	if s.h.Len() == 0 {
		return time.Hour
	}

	var d = time.Until(s.h[0].at)
	if d < 0 {
		return 0
	}

	return d
}

func (s *Scheduler) fireDue() {
	var now = time.Now()

	for {
		s.mu.Lock()
		if s.h.Len() == 0 || s.h[0].at.After(now) {
			s.mu.Unlock()

			return
		}

		var e = heap.Pop(&s.h).(*timerEntry)
		delete(s.entries, e.handle)
		s.mu.Unlock()

		if e.canceled {
			continue
		}

		if now.Sub(e.at) > time.Millisecond {
			s.log.Warnf("timer fired %s late", now.Sub(e.at))
		}

		e.fn()
	}
}
