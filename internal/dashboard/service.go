package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harrylevesque/csms/internal/alerts"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/metrics"
	"github.com/harrylevesque/csms/internal/notify"
	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/harrylevesque/csms/internal/state"
	"github.com/rs/zerolog"
)

// SafeMessage is shown in the Alerts card when nothing is breached.
const SafeMessage = "No critical alerts – all parameters within safe range."

// AlarmMessage is the banner shown while the temperature alarm is latched.
const AlarmMessage = "TEMPERATURE ALARM ACTIVE"

// ErrUnknownPage is returned by SetPage for a page that does not exist.
var ErrUnknownPage = errors.New("unknown page")

// Options tune the dashboard service.
type Options struct {
	WindowSize    int
	HistoryRows   int
	NotifyTimeout time.Duration
	Thresholds    sensors.Thresholds
}

// Source produces readings. *sensors.Generator is the production source.
type Source interface {
	Read() sensors.Reading
	Historical(n int) []sensors.Reading
}

// Service owns the per-session dashboard state and produces snapshots.
type Service struct {
	store     state.Store
	gen       Source
	evaluator *alerts.Evaluator
	notifier  notify.Fanout
	metrics   *metrics.Metrics
	log       zerolog.Logger
	opts      Options
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store state.Store, gen Source, notifier notify.Fanout, m *metrics.Metrics, log zerolog.Logger, opts Options) *Service {
	return &Service{
		store:     store,
		gen:       gen,
		evaluator: alerts.NewEvaluator(alerts.DefaultRules(opts.Thresholds)),
		notifier:  notifier,
		metrics:   m,
		log:       log,
		opts:      opts,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Thresholds returns the limits the service classifies with.
func (s *Service) Thresholds() sensors.Thresholds { return s.opts.Thresholds }

func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Open initialises the state of session id for username. It is the only
// operation that creates state; an existing session is left as is.
func (s *Service) Open(ctx context.Context, id, username string) error {
	defer s.lock(id)()
	_, err := s.store.Load(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return err
	}
	sess := state.NewSession(username, s.opts.WindowSize, s.gen.Historical(s.opts.HistoryRows), s.now())
	if err := s.store.Save(ctx, id, sess); err != nil {
		return err
	}
	s.log.Info().Str("session", id).Str("user", username).Msg("session state initialised")
	return nil
}

// Check reports auth.ErrSessionNotFound when session id has no state.
func (s *Service) Check(ctx context.Context, id string) error {
	defer s.lock(id)()
	_, err := s.load(ctx, id)
	return err
}

// load returns the state of session id. Missing state means the session was
// closed or expired and is never recreated here.
func (s *Service) load(ctx context.Context, id string) (*state.Session, error) {
	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", auth.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Tick takes a new reading for session id, runs the alert and alarm logic,
// dispatches due notifications and returns the resulting snapshot.
func (s *Service) Tick(ctx context.Context, id, username string) (Snapshot, error) {
	defer s.lock(id)()
	sess, err := s.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	r := s.gen.Read()
	sess.Window.Push(r)
	s.metrics.Readings.Inc()

	ev := s.evaluator.Evaluate(r, sess.EmailSent)
	for _, a := range ev.Alerts {
		s.metrics.Alerts.WithLabelValues(a.Key, string(a.Severity)).Inc()
	}
	for _, a := range ev.Due {
		sess.AddEntries(s.dispatch(ctx, a)...)
	}

	beep := sess.Alarm.Update(r, s.opts.Thresholds.TemperatureHigh)
	if beep {
		s.log.Warn().Str("session", id).Float64("temperature", r.Temperature).Msg("temperature alarm latched")
	}

	snap := s.snapshot(sess, r, ev.Alerts, beep && sess.SoundEnabled)
	sess.Greeted = true
	if err := s.store.Save(ctx, id, sess); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// dispatch sends one alert to every channel. Failures are recorded, never retried.
func (s *Service) dispatch(ctx context.Context, a alerts.Alert) []notify.Entry {
	ctx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
	defer cancel()

	msg := notify.AlertMessage(a)
	results := s.notifier.NotifyAll(ctx, msg)
	for _, res := range results {
		s.metrics.Notifications.WithLabelValues(res.Channel, metrics.Outcome(res.Err)).Inc()
		if res.Err != nil {
			s.log.Error().Err(res.Err).Str("channel", res.Channel).Str("parameter", a.Key).Msg("failed to send alert")
		}
	}
	return notify.Entries(s.now(), msg, results)
}

// Current returns the snapshot for the latest reading without taking a new one.
// A session with no readings yet is ticked once.
func (s *Service) Current(ctx context.Context, id, username string) (Snapshot, error) {
	unlock := s.lock(id)
	sess, err := s.load(ctx, id)
	if err != nil {
		unlock()
		return Snapshot{}, err
	}
	r, ok := sess.Window.Latest()
	if !ok {
		unlock()
		return s.Tick(ctx, id, username)
	}
	defer unlock()

	flags := make(alerts.Flags, len(sess.EmailSent))
	for k, v := range sess.EmailSent {
		flags[k] = v
	}
	ev := s.evaluator.Evaluate(r, flags)
	snap := s.snapshot(sess, r, ev.Alerts, false)
	if !sess.Greeted {
		sess.Greeted = true
		if err := s.store.Save(ctx, id, sess); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

// History returns the synthetic daily table of session id.
func (s *Service) History(ctx context.Context, id, username string) ([]sensors.Reading, error) {
	defer s.lock(id)()
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return append([]sensors.Reading(nil), sess.History...), nil
}

// SetPage records the page the operator is viewing.
func (s *Service) SetPage(ctx context.Context, id, username, page string) error {
	switch page {
	case state.PageDashboard, state.PageReports, state.PageAnalytics:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	defer s.lock(id)()
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if sess.Page == page {
		return nil
	}
	sess.Page = page
	return s.store.Save(ctx, id, sess)
}

// SetSound turns the alarm sound on or off and returns the new setting.
func (s *Service) SetSound(ctx context.Context, id, username string, enabled bool) (bool, error) {
	defer s.lock(id)()
	sess, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	sess.SoundEnabled = enabled
	return enabled, s.store.Save(ctx, id, sess)
}

// ToggleSound flips the alarm sound setting.
func (s *Service) ToggleSound(ctx context.Context, id, username string) (bool, error) {
	defer s.lock(id)()
	sess, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	sess.SoundEnabled = !sess.SoundEnabled
	return sess.SoundEnabled, s.store.Save(ctx, id, sess)
}

// Close discards the state of session id.
func (s *Service) Close(ctx context.Context, id string) error {
	unlock := s.lock(id)
	err := s.store.Delete(ctx, id)
	unlock()

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
	return err
}
