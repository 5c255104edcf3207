package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/dashboard"
)

// ErrLoginFailed is returned when the server rejects the credentials.
var ErrLoginFailed = errors.New("login failed")

// Client talks to a running dashboard server as a logged-in operator.
type Client struct {
	base string
	http *http.Client
}

func New(serverURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(serverURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (c *Client) csrf() string {
	u, err := url.Parse(c.base)
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == auth.CSRFCookie {
			return ck.Value
		}
	}
	return ""
}

// Login fetches a CSRF token and posts the login form.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := c.do(ctx, http.MethodGet, "/login", nil, nil); err != nil {
		return err
	}
	form := url.Values{
		"username":     {username},
		"password":     {password},
		auth.CSRFField: {c.csrf()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		return fmt.Errorf("%w: %s", ErrLoginFailed, resp.Status)
	}
	return nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	form := url.Values{auth.CSRFField: {c.csrf()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/logout", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Snapshot advances the session by one reading and returns it.
func (c *Client) Snapshot(ctx context.Context) (dashboard.Snapshot, error) {
	var snap dashboard.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/snapshot", nil, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&snap)
	})
	return snap, err
}

// Download copies an export such as /export/report.pdf into w.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) error {
	return c.do(ctx, http.MethodGet, path, nil, func(r io.Reader) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// Watch calls fn with every snapshot pushed over the live stream until ctx
// is done, the server closes the stream or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(dashboard.Snapshot) error) error {
	u, err := url.Parse(c.base)
	if err != nil {
		return err
	}
	header := http.Header{}
	for _, ck := range c.http.Jar.Cookies(u) {
		header.Add("Cookie", ck.Name+"="+ck.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to open live stream: %w", err)
	}
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch msg.Type {
		case "snapshot":
			var snap dashboard.Snapshot
			if err := json.Unmarshal(msg.Payload, &snap); err != nil {
				return err
			}
			if err := fn(snap); err != nil {
				return err
			}
		case "closed":
			return nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, read func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if read == nil {
		return nil
	}
	return read(resp.Body)
}
