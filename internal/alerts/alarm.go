package alerts

import "github.com/harrylevesque/csms/internal/sensors"

// Alarm is the latched temperature alarm.
type Alarm struct {
	Active bool `json:"active"`
}

// Update latches the alarm when temperature exceeds limit and releases it once
// temperature is back at or below limit. It returns true only on the tick that
// starts the alarm, which is when the beep plays.
func (a *Alarm) Update(r sensors.Reading, limit float64) bool {
	if r.Temperature <= limit {
		a.Active = false
		return false
	}
	if a.Active {
		return false
	}
	a.Active = true
	return true
}
