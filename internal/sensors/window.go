package sensors

import (
	"math"
	"time"
)

// Window keeps the most recent readings, evicting the oldest once Size is reached.
// Fields are exported so the window survives a JSON round trip through a session store.
type Window struct {
	Size     int       `json:"size"`
	Readings []Reading `json:"readings"`
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{Size: size, Readings: make([]Reading, 0, size)}
}

func (w *Window) Push(r Reading) {
	w.Readings = append(w.Readings, r)
	if over := len(w.Readings) - w.Size; over > 0 {
		w.Readings = append(w.Readings[:0], w.Readings[over:]...)
	}
}

func (w *Window) Len() int { return len(w.Readings) }

// Latest returns the newest reading.
func (w *Window) Latest() (Reading, bool) {
	if len(w.Readings) == 0 {
		return Reading{}, false
	}
	return w.Readings[len(w.Readings)-1], true
}

// Series returns the values of p, oldest first.
func (w *Window) Series(p Parameter) []float64 {
	out := make([]float64, len(w.Readings))
	for i, r := range w.Readings {
		out[i] = r.Value(p)
	}
	return out
}

func (w *Window) Times() []time.Time {
	out := make([]time.Time, len(w.Readings))
	for i, r := range w.Readings {
		out[i] = r.Time
	}
	return out
}

// Stats summarises one parameter over a set of readings.
type Stats struct {
	Parameter Parameter `json:"-"`
	Key       string    `json:"parameter"`
	Count     int       `json:"count"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Mean      float64   `json:"mean"`
}

// Summarize computes min, max and mean for every parameter. An empty input yields zero stats.
func Summarize(readings []Reading) []Stats {
	out := make([]Stats, 0, len(Parameters))
	for _, p := range Parameters {
		s := Stats{Parameter: p, Key: p.Key(), Count: len(readings)}
		if len(readings) > 0 {
			s.Min, s.Max = math.Inf(1), math.Inf(-1)
			var sum float64
			for _, r := range readings {
				v := r.Value(p)
				s.Min = math.Min(s.Min, v)
				s.Max = math.Max(s.Max, v)
				sum += v
			}
			s.Mean = Round1(sum / float64(len(readings)))
		}
		out = append(out, s)
	}
	return out
}
