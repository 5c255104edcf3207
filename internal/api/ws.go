package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harrylevesque/csms/internal/auth"
)

// WSMessage is the JSON message structure.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type wsCommand struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsWriteWait  = 10 * time.Second
)

// WSHandler pushes a fresh snapshot every refresh interval until the browser
// goes away or the session logs out.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := s.dash.Check(r.Context(), id.SessionID); err != nil {
		auth.ErrorResponse(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.metrics.LiveClients.Inc()
	defer s.metrics.LiveClients.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remove := s.hub.add(id.SessionID, cancel)
	defer remove()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	sendChan := make(chan WSMessage, 8)
	var wg sync.WaitGroup

	// writer: the only goroutine touching the connection for writes
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case msg := <-sendChan:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(msg); err != nil {
					s.log.Debug().Err(err).Msg("websocket write failed")
					return
				}
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteJSON(WSMessage{Type: "closed"})
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}()

	// reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			switch cmd.Type {
			case "sound":
				var p struct {
					Enabled bool `json:"enabled"`
				}
				if err := json.Unmarshal(cmd.Payload, &p); err != nil {
					send(ctx, sendChan, WSMessage{Type: "error", Payload: "invalid sound payload"})
					continue
				}
				on, err := s.dash.SetSound(ctx, id.SessionID, id.Username, p.Enabled)
				if err != nil {
					send(ctx, sendChan, WSMessage{Type: "error", Payload: err.Error()})
					continue
				}
				send(ctx, sendChan, WSMessage{Type: "sound", Payload: map[string]bool{"sound_enabled": on}})
			default:
				send(ctx, sendChan, WSMessage{Type: "error", Payload: "unknown command " + cmd.Type})
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.Server.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			snap, err := s.dash.Tick(ctx, id.SessionID, id.Username)
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, auth.ErrSessionNotFound) {
				cancel()
				continue
			}
			if err != nil {
				s.log.Error().Err(err).Str("session", id.SessionID).Msg("tick failed")
				send(ctx, sendChan, WSMessage{Type: "error", Payload: "tick failed"})
				continue
			}
			send(ctx, sendChan, WSMessage{Type: "snapshot", Payload: snap})
		case <-ctx.Done():
			// unblock the reader
			conn.SetReadDeadline(time.Now())
			wg.Wait()
			return
		}
	}
}

func send(ctx context.Context, ch chan<- WSMessage, msg WSMessage) {
	select {
	case ch <- msg:
	case <-ctx.Done():
	}
}
