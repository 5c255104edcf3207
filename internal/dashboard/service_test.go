package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/metrics"
	"github.com/harrylevesque/csms/internal/notify"
	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/harrylevesque/csms/internal/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = sensors.Reading{Temperature: 25, Humidity: 50, Pressure: 1000, PM25: 20, CO2: 600, Noise: 40}

// script replays readings in order, repeating the last one.
type script struct {
	mu       sync.Mutex
	readings []sensors.Reading
	i        int
}

func (s *script) Read() sensors.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readings[s.i]
	if s.i < len(s.readings)-1 {
		s.i++
	}
	r.Time = time.Now()
	return r
}

func (s *script) Historical(n int) []sensors.Reading {
	return make([]sensors.Reading, n)
}

type recorder struct {
	mu   sync.Mutex
	name string
	err  error
	msgs []notify.Message
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func temp(v float64) sensors.Reading {
	r := base
	r.Temperature = v
	return r
}

func newService(t *testing.T, src Source, channels ...notify.Notifier) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	svc := New(state.NewMemoryStore(time.Hour, 20), src, notify.Fanout(channels), m, zerolog.Nop(), Options{
		WindowSize:    20,
		HistoryRows:   30,
		NotifyTimeout: time.Second,
		Thresholds:    sensors.DefaultThresholds(),
	})
	require.NoError(t, svc.Open(context.Background(), "s1", "admin"))
	return svc, m
}

func TestTickSafe(t *testing.T) {
	ctx := context.Background()
	email := &recorder{name: "Email"}
	svc, m := newService(t, &script{readings: []sensors.Reading{base}}, email)

	snap, err := svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.True(t, snap.Safe)
	assert.Equal(t, SafeMessage, snap.SafeMessage)
	assert.Empty(t, snap.Alerts)
	assert.False(t, snap.Alarm.Active)
	assert.True(t, snap.SoundEnabled)
	assert.True(t, snap.Greet)
	assert.Len(t, snap.Rows, 6)
	assert.Equal(t, "25.0 °C", snap.Rows[0].Display)
	assert.Equal(t, sensors.LevelOK, snap.Rows[0].Status.Level)
	assert.Len(t, snap.Window, 1)
	assert.Zero(t, email.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Readings))

	snap, err = svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.False(t, snap.Greet)
	assert.Len(t, snap.Window, 2)
}

func TestEmailSentOncePerBreach(t *testing.T) {
	ctx := context.Background()
	email := &recorder{name: "Email"}
	src := &script{readings: []sensors.Reading{temp(35), temp(36), temp(35.5), temp(30), temp(35.1)}}
	svc, m := newService(t, src, email)

	var snaps []Snapshot
	for i := 0; i < 5; i++ {
		snap, err := svc.Tick(ctx, "s1", "admin")
		require.NoError(t, err)
		snaps = append(snaps, snap)
	}

	assert.Equal(t, 2, email.count())
	assert.Equal(t, "CRITICAL TEMPERATURE ALERT", email.msgs[0].Subject)
	assert.False(t, snaps[0].Safe)
	assert.True(t, snaps[3].Safe)
	require.Len(t, snaps[4].Notifications, 2)
	assert.Equal(t, "Email – CRITICAL TEMPERATURE ALERT", snaps[4].Notifications[0].Text)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("Email", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Alerts.WithLabelValues("Temperature", "critical")))
}

func TestEmailFailureRecordedNotRetried(t *testing.T) {
	ctx := context.Background()
	email := &recorder{name: "Email", err: errors.New("smtp down")}
	svc, m := newService(t, &script{readings: []sensors.Reading{temp(35), temp(35)}}, email)

	snap, err := svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	require.Len(t, snap.Notifications, 1)
	assert.False(t, snap.Notifications[0].OK)
	assert.Equal(t, "Email – failed: smtp down", snap.Notifications[0].Text)

	_, err = svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, email.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("Email", "error")))
}

func TestAlarmLatch(t *testing.T) {
	ctx := context.Background()
	src := &script{readings: []sensors.Reading{temp(35), temp(35.5), temp(34), temp(34.2)}}
	svc, _ := newService(t, src)

	snap, err := svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.True(t, snap.Alarm.Active)
	assert.True(t, snap.Alarm.Beep)
	assert.Equal(t, AlarmMessage, snap.Alarm.Message)

	snap, err = svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.True(t, snap.Alarm.Active)
	assert.False(t, snap.Alarm.Beep)

	snap, err = svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.False(t, snap.Alarm.Active)

	snap, err = svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.True(t, snap.Alarm.Beep)
}

func TestAlarmSilentWhenSoundDisabled(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &script{readings: []sensors.Reading{temp(35)}})

	on, err := svc.ToggleSound(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.False(t, on)

	snap, err := svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.True(t, snap.Alarm.Active)
	assert.False(t, snap.Alarm.Beep)
	assert.False(t, snap.SoundEnabled)

	on, err = svc.SetSound(ctx, "s1", "admin", true)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestCurrentDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	email := &recorder{name: "Email"}
	svc, _ := newService(t, &script{readings: []sensors.Reading{temp(35), temp(20)}}, email)

	first, err := svc.Current(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.Len(t, first.Window, 1)
	assert.True(t, first.Greet)

	again, err := svc.Current(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.Len(t, again.Window, 1)
	assert.False(t, again.Greet)
	assert.Equal(t, first.Reading.Temperature, again.Reading.Temperature)
	assert.False(t, again.Safe)
	assert.Equal(t, 1, email.count())
}

func TestSetPageAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &script{readings: []sensors.Reading{base}})

	require.NoError(t, svc.SetPage(ctx, "s1", "admin", state.PageReports))
	require.ErrorIs(t, svc.SetPage(ctx, "s1", "admin", "settings"), ErrUnknownPage)

	snap, err := svc.Current(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.Equal(t, state.PageReports, snap.Page)

	hist, err := svc.History(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.Len(t, hist, 30)
}

func TestOpenKeepsExistingState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &script{readings: []sensors.Reading{base}})

	_, err := svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	require.NoError(t, svc.Open(ctx, "s1", "admin"))

	snap, err := svc.Current(ctx, "s1", "admin")
	require.NoError(t, err)
	assert.Len(t, snap.Window, 1)
}

func TestCloseDiscardsState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &script{readings: []sensors.Reading{base}})

	_, err := svc.Tick(ctx, "s1", "admin")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, "s1"))

	_, err = svc.Current(ctx, "s1", "admin")
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = svc.Tick(ctx, "s1", "admin")
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = svc.History(ctx, "s1", "admin")
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	require.ErrorIs(t, svc.SetPage(ctx, "s1", "admin", state.PageReports), auth.ErrSessionNotFound)
	_, err = svc.ToggleSound(ctx, "s1", "admin")
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = svc.SetSound(ctx, "s1", "admin", false)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	require.ErrorIs(t, svc.Check(ctx, "s1"), auth.ErrSessionNotFound)

	_, err = svc.store.Load(ctx, "s1")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestUnopenedSessionIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, m := newService(t, &script{readings: []sensors.Reading{base}})

	_, err := svc.Tick(ctx, "never-opened", "admin")
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = svc.store.Load(ctx, "never-opened")
	require.ErrorIs(t, err, state.ErrNotFound)
	assert.Zero(t, testutil.ToFloat64(m.Readings))
}

func TestTickQueuedBehindCloseDoesNotRecreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &script{readings: []sensors.Reading{base}})

	// hold the session lock so the tick queues, then discard state underneath it
	unlock := svc.lock("s1")
	done := make(chan error, 1)
	go func() {
		_, err := svc.Tick(ctx, "s1", "admin")
		done <- err
	}()
	require.NoError(t, svc.store.Delete(ctx, "s1"))
	unlock()

	require.ErrorIs(t, <-done, auth.ErrSessionNotFound)
	_, err := svc.store.Load(ctx, "s1")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	email := &recorder{name: "Email"}
	svc, _ := newService(t, &script{readings: []sensors.Reading{temp(35)}}, email)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.Open(ctx, id, "admin"))
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := svc.Tick(ctx, id, "admin")
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 3, email.count())
}
