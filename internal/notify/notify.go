package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrylevesque/csms/internal/alerts"
	"github.com/rs/zerolog"
)

// Message is what a channel delivers for one alert.
type Message struct {
	Subject string
	Body    string
	Alert   alerts.Alert
}

// AlertMessage renders the operator email for an alert.
func AlertMessage(a alerts.Alert) Message {
	return Message{
		Subject: fmt.Sprintf("%s %s ALERT", strings.ToUpper(string(a.Severity)), strings.ToUpper(a.Parameter.Key())),
		Body: fmt.Sprintf(
			"%s crossed safe limit!\n\nCurrent Value: %s\nTime: %s\n\nPlease take immediate action.",
			a.Parameter.Key(),
			a.Parameter.Format(a.Value),
			a.Time.Format("2006-01-02 15:04:05"),
		),
		Alert: a,
	}
}

// Notifier delivers alert messages over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Result is the outcome of one channel for one message.
type Result struct {
	Channel string
	Err     error
}

// Fanout sends every message to all channels. A failing channel does not stop the others.
type Fanout []Notifier

func (f Fanout) Name() string { return "Fanout" }

// Notify returns the joined channel errors.
func (f Fanout) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, r := range f.NotifyAll(ctx, msg) {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Channel, r.Err))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) NotifyAll(ctx context.Context, msg Message) []Result {
	results := make([]Result, 0, len(f))
	for _, n := range f {
		results = append(results, Result{Channel: n.Name(), Err: n.Notify(ctx, msg)})
	}
	return results
}

// LogNotifier only writes the alert to the log. It is the stand-in when no
// delivery channel is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Name() string { return "Log" }

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.log.Warn().
		Str("parameter", msg.Alert.Key).
		Float64("value", msg.Alert.Value).
		Str("severity", string(msg.Alert.Severity)).
		Msg(msg.Subject)
	return nil
}

// Entry is one line of the notification feed shown on the dashboard.
type Entry struct {
	Time    time.Time `json:"time"`
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	OK      bool      `json:"ok"`
}

// Entries turns channel results into feed lines.
func Entries(at time.Time, msg Message, results []Result) []Entry {
	out := make([]Entry, 0, len(results))
	for _, r := range results {
		e := Entry{Time: at, Channel: r.Channel, OK: r.Err == nil}
		if r.Err != nil {
			e.Text = fmt.Sprintf("%s – failed: %v", r.Channel, r.Err)
		} else {
			e.Text = fmt.Sprintf("%s – %s", r.Channel, msg.Subject)
		}
		out = append(out, e)
	}
	return out
}
