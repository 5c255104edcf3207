package state

import (
	"context"
	"errors"
	"time"

	"github.com/harrylevesque/csms/internal/alerts"
	"github.com/harrylevesque/csms/internal/notify"
	"github.com/harrylevesque/csms/internal/sensors"
)

// ErrNotFound is returned when a session has no stored state (never created, expired or deleted).
var ErrNotFound = errors.New("session state not found")

// Pages a session can be on.
const (
	PageDashboard = "dashboard"
	PageReports   = "reports"
	PageAnalytics = "analytics"
)

// FeedSize caps the notification feed kept per session.
const FeedSize = 10

// Session is the per-login dashboard state.
type Session struct {
	Username     string            `json:"username"`
	Page         string            `json:"page"`
	EmailSent    alerts.Flags      `json:"email_sent"`
	Alarm        alerts.Alarm      `json:"alarm"`
	SoundEnabled bool              `json:"sound_enabled"`
	Window       *sensors.Window   `json:"window"`
	History      []sensors.Reading `json:"history"`
	Feed         []notify.Entry    `json:"feed"`
	// Greeted is set once the login success sound has been played.
	Greeted   bool      `json:"greeted"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession returns freshly initialised state for username.
func NewSession(username string, windowSize int, history []sensors.Reading, now time.Time) *Session {
	return &Session{
		Username:     username,
		Page:         PageDashboard,
		EmailSent:    alerts.Flags{},
		SoundEnabled: true,
		Window:       sensors.NewWindow(windowSize),
		History:      history,
		CreatedAt:    now,
	}
}

// AddEntries appends to the feed, newest last, keeping at most FeedSize entries.
func (s *Session) AddEntries(entries ...notify.Entry) {
	s.Feed = append(s.Feed, entries...)
	if over := len(s.Feed) - FeedSize; over > 0 {
		s.Feed = append(s.Feed[:0], s.Feed[over:]...)
	}
}

// ensure fills in fields that may be missing after decoding older state.
func (s *Session) ensure(windowSize int) {
	if s.EmailSent == nil {
		s.EmailSent = alerts.Flags{}
	}
	if s.Window == nil {
		s.Window = sensors.NewWindow(windowSize)
	}
	if s.Page == "" {
		s.Page = PageDashboard
	}
}

// Store persists session state by session ID.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s *Session) error
	Delete(ctx context.Context, id string) error
}
