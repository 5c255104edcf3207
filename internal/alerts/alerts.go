package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harrylevesque/csms/internal/sensors"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rule raises an alert when a parameter crosses Limit (above it, or below it when Below is set).
type Rule struct {
	Parameter sensors.Parameter
	Limit     float64
	Below     bool
	Severity  Severity
	Email     bool
	Message   string
}

// Breached reports whether v violates the rule.
func (r Rule) Breached(v float64) bool {
	if r.Below {
		return v < r.Limit
	}
	return v > r.Limit
}

// DefaultRules builds the alert rules from the classification thresholds.
func DefaultRules(t sensors.Thresholds) []Rule {
	return []Rule{
		{
			Parameter: sensors.Temperature,
			Limit:     t.TemperatureHigh,
			Severity:  SeverityCritical,
			Email:     true,
			Message:   fmt.Sprintf("Temperature exceeded %g°C", t.TemperatureHigh),
		},
		{
			Parameter: sensors.Humidity,
			Limit:     t.HumidityHigh,
			Severity:  SeverityWarning,
			Email:     true,
			Message:   fmt.Sprintf("Humidity crossed %g%%", t.HumidityHigh),
		},
		{
			Parameter: sensors.Pressure,
			Limit:     t.PressureLow,
			Below:     true,
			Severity:  SeverityWarning,
			Email:     true,
			Message:   fmt.Sprintf("Pressure below safe limit of %g hPa", t.PressureLow),
		},
		{
			Parameter: sensors.CO2,
			Limit:     t.CO2High,
			Severity:  SeverityCritical,
			Email:     true,
			Message:   fmt.Sprintf("CO2 level above %g ppm", t.CO2High),
		},
		{
			Parameter: sensors.PM25,
			Limit:     t.PM25Moderate,
			Severity:  SeverityWarning,
			Email:     true,
			Message:   fmt.Sprintf("PM2.5 above %g µg/m³", t.PM25Moderate),
		},
	}
}

// Alert is one active rule breach.
type Alert struct {
	ID        string            `json:"id"`
	Time      time.Time         `json:"time"`
	Parameter sensors.Parameter `json:"-"`
	Key       string            `json:"parameter"`
	Severity  Severity          `json:"severity"`
	Value     float64           `json:"value"`
	Limit     float64           `json:"limit"`
	Message   string            `json:"message"`
	// Emailed is true once an email has gone out for the current breach episode.
	Emailed bool `json:"emailed"`
}

// Flags records, per parameter key, that an email was sent for the ongoing breach.
type Flags map[string]bool

// Evaluation is the outcome of checking one reading.
type Evaluation struct {
	Alerts []Alert
	// Due holds the alerts whose email must be sent now.
	Due []Alert
}

// Safe reports whether no rule is breached.
func (e Evaluation) Safe() bool { return len(e.Alerts) == 0 }

type Evaluator struct {
	rules []Rule
}

func NewEvaluator(rules []Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

func (e *Evaluator) Rules() []Rule { return e.rules }

// Evaluate checks r against every rule and updates flags in place.
// The first breach of an email rule is due for sending and sets the parameter flag;
// the flag clears once every rule on that parameter is back within its limit.
func (e *Evaluator) Evaluate(r sensors.Reading, flags Flags) Evaluation {
	var ev Evaluation
	breached := make(map[string]bool)
	for _, rule := range e.rules {
		v := r.Value(rule.Parameter)
		if !rule.Breached(v) {
			continue
		}
		key := rule.Parameter.Key()
		breached[key] = true
		a := Alert{
			ID:        uuid.New().String(),
			Time:      r.Time,
			Parameter: rule.Parameter,
			Key:       key,
			Severity:  rule.Severity,
			Value:     v,
			Limit:     rule.Limit,
			Message:   rule.Message,
		}
		if rule.Email {
			if !flags[key] {
				flags[key] = true
				ev.Due = append(ev.Due, a)
			}
			a.Emailed = true
		}
		ev.Alerts = append(ev.Alerts, a)
	}
	for key := range flags {
		if !breached[key] {
			delete(flags, key)
		}
	}
	return ev
}
