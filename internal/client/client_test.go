package client

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harrylevesque/csms/internal/api"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/config"
	"github.com/harrylevesque/csms/internal/crypto"
	"github.com/harrylevesque/csms/internal/dashboard"
	"github.com/harrylevesque/csms/internal/metrics"
	"github.com/harrylevesque/csms/internal/notify"
	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/harrylevesque/csms/internal/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RefreshInterval = 30 * time.Millisecond
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.Auth = config.AuthConfig{Username: "op", PasswordHash: string(hash)}

	keys, err := crypto.DeriveSessionKeys(crypto.MustRandom(crypto.MasterKeySize))
	require.NoError(t, err)
	a, err := auth.New(cfg.Auth, cfg.Session, keys)
	require.NoError(t, err)
	m := metrics.New()
	dash := dashboard.New(state.NewMemoryStore(time.Hour, 20), sensors.NewGenerator(7),
		notify.Fanout{notify.NewLogNotifier(zerolog.Nop())}, m, zerolog.Nop(),
		dashboard.Options{WindowSize: 20, HistoryRows: 30, NotifyTimeout: time.Second, Thresholds: sensors.DefaultThresholds()})
	srv, err := api.NewServer(cfg, a, dash, m, zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.NewRouter())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return ts.URL
}

func TestLoginSnapshotDownload(t *testing.T) {
	ctx := context.Background()
	c, err := New(startServer(t))
	require.NoError(t, err)

	_, err = c.Snapshot(ctx)
	require.Error(t, err)

	require.NoError(t, c.Login(ctx, "op", "pw"))
	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "op", snap.Username)
	assert.Len(t, snap.Rows, 6)

	var buf bytes.Buffer
	require.NoError(t, c.Download(ctx, "/export/history.csv", &buf))
	assert.Contains(t, buf.String(), "time,Temperature,Humidity")

	require.NoError(t, c.Logout(ctx))
	_, err = c.Snapshot(ctx)
	require.Error(t, err)
}

func TestLoginRejected(t *testing.T) {
	c, err := New(startServer(t))
	require.NoError(t, err)
	err = c.Login(context.Background(), "op", "nope")
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestWatch(t *testing.T) {
	c, err := New(startServer(t))
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "op", "pw"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stop := errors.New("enough")
	var got []dashboard.Snapshot
	err = c.Watch(ctx, func(s dashboard.Snapshot) error {
		got = append(got, s)
		if len(got) == 3 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Len(t, got[2].Window, 3)
}

func TestWatchEndsWhenServerCloses(t *testing.T) {
	c, err := New(startServer(t))
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "op", "pw"))

	result := make(chan error, 1)
	go func() {
		result <- c.Watch(context.Background(), func(dashboard.Snapshot) error {
			return c.Logout(context.Background())
		})
	}()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after the server closed the stream")
	}
	_, err = c.Snapshot(context.Background())
	require.Error(t, err)
}
