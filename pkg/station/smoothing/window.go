// Package smoothing keeps a bounded history of measurements per key and
// reports their averages.
package smoothing

import (
	"container/ring"
	"math"
	"sort"
	"sync"
)

// DefaultSize is the number of samples kept per key.
const DefaultSize = 10

// Window is a per-key moving average over the last Size samples. Keys are
// created on first use. It is safe for concurrent use.
type Window struct {
	size    int
	samples map[string]*series
	lock    sync.RWMutex
}

type series struct {
	ring *ring.Ring
	n    int
}

// NewWindow creates a Window keeping size samples per key.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{size: size, samples: make(map[string]*series)}
}

// Size returns the number of samples kept per key.
func (w *Window) Size() int {
	return w.size
}

// Add records one sample for each key in values.
func (w *Window) Add(values map[string]float64) {
	w.lock.Lock()
	defer w.lock.Unlock()
	for key, value := range values {
		s := w.samples[key]
		if s == nil {
			s = &series{ring: ring.New(w.size)}
			w.samples[key] = s
		}
		s.ring.Value = value
		s.ring = s.ring.Next()
		if s.n < w.size {
			s.n++
		}
	}
}

// Averages returns the rounded mean of the samples kept for every key.
// Halves round to even.
func (w *Window) Averages() map[string]int {
	w.lock.RLock()
	defer w.lock.RUnlock()
	averages := make(map[string]int, len(w.samples))
	for key, s := range w.samples {
		var sum float64
		s.ring.Do(func(v any) {
			if v != nil {
				sum += v.(float64)
			}
		})
		averages[key] = int(math.RoundToEven(sum / float64(s.n)))
	}
	return averages
}

// Len returns the number of samples kept for key.
func (w *Window) Len(key string) int {
	w.lock.RLock()
	defer w.lock.RUnlock()
	if s := w.samples[key]; s != nil {
		return s.n
	}
	return 0
}

// Keys returns the known keys, sorted.
func (w *Window) Keys() []string {
	w.lock.RLock()
	defer w.lock.RUnlock()
	keys := make([]string, 0, len(w.samples))
	for key := range w.samples {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Reset forgets all samples.
func (w *Window) Reset() {
	w.lock.Lock()
	w.samples = make(map[string]*series)
	w.lock.Unlock()
}
