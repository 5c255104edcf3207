package sensors

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Parameter identifies one monitored environmental quantity.
type Parameter int

const (
	Temperature Parameter = iota
	Humidity
	Pressure
	PM25
	CO2
	Noise
)

// Parameters lists every parameter in display order.
var Parameters = []Parameter{Temperature, Humidity, Pressure, PM25, CO2, Noise}

type paramInfo struct {
	key   string
	label string
	unit  string
	min   float64
	max   float64
}

var params = map[Parameter]paramInfo{
	Temperature: {"Temperature", "Temperature", "°C", 22, 36},
	Humidity:    {"Humidity", "Humidity", "%", 40, 75},
	Pressure:    {"Pressure", "Pressure", "hPa", 980, 1025},
	PM25:        {"PM2.5", "Air Quality (PM2.5)", "µg/m³", 10, 80},
	CO2:         {"CO2", "CO₂ Level", "ppm", 400, 1500},
	Noise:       {"Noise", "Noise Level", "dB", 25, 85},
}

// Key is the short ASCII name used in exports and JSON.
func (p Parameter) Key() string   { return params[p].key }
func (p Parameter) Label() string { return params[p].label }
func (p Parameter) Unit() string  { return params[p].unit }
func (p Parameter) String() string {
	if info, ok := params[p]; ok {
		return info.key
	}
	return fmt.Sprintf("Parameter(%d)", int(p))
}

// Range returns the bounds the simulated sensor draws from.
func (p Parameter) Range() (float64, float64) {
	info := params[p]
	return info.min, info.max
}

// ParseParameter maps a key such as "PM2.5" back to its Parameter.
func ParseParameter(key string) (Parameter, error) {
	for _, p := range Parameters {
		if params[p].key == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown parameter %q", key)
}

// Reading is one sample of all parameters.
type Reading struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	PM25        float64   `json:"pm25"`
	CO2         float64   `json:"co2"`
	Noise       float64   `json:"noise"`
}

// Value returns the reading for p.
func (r Reading) Value(p Parameter) float64 {
	switch p {
	case Temperature:
		return r.Temperature
	case Humidity:
		return r.Humidity
	case Pressure:
		return r.Pressure
	case PM25:
		return r.PM25
	case CO2:
		return r.CO2
	case Noise:
		return r.Noise
	}
	return 0
}

// Set stores v for p.
func (r *Reading) Set(p Parameter, v float64) {
	switch p {
	case Temperature:
		r.Temperature = v
	case Humidity:
		r.Humidity = v
	case Pressure:
		r.Pressure = v
	case PM25:
		r.PM25 = v
	case CO2:
		r.CO2 = v
	case Noise:
		r.Noise = v
	}
}

// Format renders v with one decimal and the parameter unit, e.g. "31.4 °C".
func (p Parameter) Format(v float64) string {
	return fmt.Sprintf("%.1f %s", v, p.Unit())
}

// Generator produces synthetic readings, uniform over each parameter's range.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator seeds the generator. A zero seed uses the current time.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Read draws one reading stamped with the current time.
func (g *Generator) Read() Reading {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draw(g.now())
}

// Historical returns n daily rows ending today, oldest first.
func (g *Generator) Historical(n int) []Reading {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rows := make([]Reading, 0, n)
	for i := n - 1; i >= 0; i-- {
		rows = append(rows, g.draw(today.AddDate(0, 0, -i)))
	}
	return rows
}

func (g *Generator) draw(at time.Time) Reading {
	r := Reading{Time: at}
	for _, p := range Parameters {
		lo, hi := p.Range()
		r.Set(p, Round1(lo+g.rng.Float64()*(hi-lo)))
	}
	return r
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
