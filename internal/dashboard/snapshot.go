package dashboard

import (
	"time"

	"github.com/harrylevesque/csms/internal/alerts"
	"github.com/harrylevesque/csms/internal/notify"
	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/harrylevesque/csms/internal/state"
)

// ClockLayout formats the UTC clock in the header.
const ClockLayout = "2006-01-02 | 15:04:05 UTC"

// Row is one line of the live readings table.
type Row struct {
	Key     string         `json:"key"`
	Label   string         `json:"label"`
	Value   float64        `json:"value"`
	Unit    string         `json:"unit"`
	Display string         `json:"display"`
	Status  sensors.Status `json:"status"`
}

// AlarmView is the alarm state as the browser needs it.
type AlarmView struct {
	Active  bool   `json:"active"`
	Message string `json:"message,omitempty"`
	// Beep asks the browser to play the alarm once.
	Beep bool `json:"beep"`
}

// Snapshot is everything a dashboard render needs.
type Snapshot struct {
	Time          time.Time         `json:"time"`
	Clock         string            `json:"clock"`
	Username      string            `json:"username"`
	Page          string            `json:"page"`
	Reading       sensors.Reading   `json:"reading"`
	Rows          []Row             `json:"rows"`
	Alerts        []alerts.Alert    `json:"alerts"`
	Safe          bool              `json:"safe"`
	SafeMessage   string            `json:"safe_message,omitempty"`
	Alarm         AlarmView         `json:"alarm"`
	SoundEnabled  bool              `json:"sound_enabled"`
	Notifications []notify.Entry    `json:"notifications"`
	Window        []sensors.Reading `json:"window"`
	Stats         []sensors.Stats   `json:"stats"`
	// Greet is set on the first snapshot after login.
	Greet bool `json:"greet"`
}

func (s *Service) snapshot(sess *state.Session, r sensors.Reading, active []alerts.Alert, beep bool) Snapshot {
	now := s.now()
	snap := Snapshot{
		Time:          now,
		Clock:         now.UTC().Format(ClockLayout),
		Username:      sess.Username,
		Page:          sess.Page,
		Reading:       r,
		Rows:          Rows(r, s.opts.Thresholds),
		Alerts:        active,
		Safe:          len(active) == 0,
		SoundEnabled:  sess.SoundEnabled,
		Notifications: append([]notify.Entry(nil), sess.Feed...),
		Window:        append([]sensors.Reading(nil), sess.Window.Readings...),
		Greet:         !sess.Greeted,
	}
	if snap.Alerts == nil {
		snap.Alerts = []alerts.Alert{}
	}
	if snap.Safe {
		snap.SafeMessage = SafeMessage
	}
	if sess.Alarm.Active {
		snap.Alarm = AlarmView{Active: true, Message: AlarmMessage, Beep: beep}
	}
	snap.Stats = sensors.Summarize(snap.Window)
	return snap
}

// Rows builds the readings table for r.
func Rows(r sensors.Reading, t sensors.Thresholds) []Row {
	rows := make([]Row, 0, len(sensors.Parameters))
	for _, p := range sensors.Parameters {
		v := r.Value(p)
		rows = append(rows, Row{
			Key:     p.Key(),
			Label:   p.Label(),
			Value:   v,
			Unit:    p.Unit(),
			Display: p.Format(v),
			Status:  t.Classify(p, v),
		})
	}
	return rows
}
