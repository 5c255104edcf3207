package alerts

import (
	"testing"

	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func safeReading() sensors.Reading {
	return sensors.Reading{
		Temperature: 24,
		Humidity:    45,
		Pressure:    1010,
		PM25:        20,
		CO2:         500,
		Noise:       40,
	}
}

func newEvaluator() *Evaluator {
	return NewEvaluator(DefaultRules(sensors.DefaultThresholds()))
}

func TestEvaluateSafeReading(t *testing.T) {
	flags := Flags{}
	ev := newEvaluator().Evaluate(safeReading(), flags)
	assert.True(t, ev.Safe())
	assert.Empty(t, ev.Due)
	assert.Empty(t, flags)
}

func TestEvaluateRaisesEachRule(t *testing.T) {
	tests := []struct {
		name  string
		param sensors.Parameter
		value float64
	}{
		{"hot", sensors.Temperature, 35},
		{"humid", sensors.Humidity, 61},
		{"low pressure", sensors.Pressure, 985},
		{"co2", sensors.CO2, 1300},
		{"pm25", sensors.PM25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := safeReading()
			r.Set(tt.param, tt.value)
			ev := newEvaluator().Evaluate(r, Flags{})
			require.Len(t, ev.Alerts, 1)
			assert.Equal(t, tt.param.Key(), ev.Alerts[0].Key)
			assert.Equal(t, tt.value, ev.Alerts[0].Value)
			assert.NotEmpty(t, ev.Alerts[0].ID)
			require.Len(t, ev.Due, 1)
		})
	}
}

func TestEmailIsOneShotPerParameter(t *testing.T) {
	e := newEvaluator()
	flags := Flags{}

	hot := safeReading()
	hot.Temperature = 35.5

	ev := e.Evaluate(hot, flags)
	require.Len(t, ev.Due, 1)
	assert.True(t, flags["Temperature"])

	// still hot: alert stays up, no second email
	ev = e.Evaluate(hot, flags)
	require.Len(t, ev.Alerts, 1)
	assert.True(t, ev.Alerts[0].Emailed)
	assert.Empty(t, ev.Due)

	// humidity breaches while temperature is still hot: only humidity is due
	both := hot
	both.Humidity = 70
	ev = e.Evaluate(both, flags)
	require.Len(t, ev.Due, 1)
	assert.Equal(t, "Humidity", ev.Due[0].Key)

	// temperature recovers, humidity does not: only the temperature flag clears
	humid := safeReading()
	humid.Humidity = 70
	ev = e.Evaluate(humid, flags)
	assert.Empty(t, ev.Due)
	assert.False(t, flags["Temperature"])
	assert.True(t, flags["Humidity"])

	// temperature breaches again: a new email is due
	ev = e.Evaluate(both, flags)
	require.Len(t, ev.Due, 1)
	assert.Equal(t, "Temperature", ev.Due[0].Key)
}

func TestRuleWithoutEmailNeverDue(t *testing.T) {
	e := NewEvaluator([]Rule{{Parameter: sensors.Noise, Limit: 80, Severity: SeverityWarning, Message: "loud"}})
	r := safeReading()
	r.Noise = 85
	flags := Flags{}
	ev := e.Evaluate(r, flags)
	require.Len(t, ev.Alerts, 1)
	assert.False(t, ev.Alerts[0].Emailed)
	assert.Empty(t, ev.Due)
	assert.Empty(t, flags)
}

func TestBoundaryIsNotABreach(t *testing.T) {
	r := safeReading()
	r.Temperature = 34
	r.Pressure = 990
	r.Humidity = 60
	assert.True(t, newEvaluator().Evaluate(r, Flags{}).Safe())
}

func TestAlarmLatch(t *testing.T) {
	var a Alarm
	hot := sensors.Reading{Temperature: 35}
	cool := sensors.Reading{Temperature: 30}

	assert.True(t, a.Update(hot, 34), "first hot tick starts the alarm")
	assert.True(t, a.Active)
	assert.False(t, a.Update(hot, 34), "latched alarm does not beep again")
	assert.True(t, a.Active)
	assert.False(t, a.Update(cool, 34))
	assert.False(t, a.Active)
	assert.True(t, a.Update(hot, 34), "alarm re-arms after cooling")
}
