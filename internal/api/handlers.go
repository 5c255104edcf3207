package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/harrylevesque/csms/internal/alerts"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/dashboard"
	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/harrylevesque/csms/internal/utils"
)

// GetTimeHandler returns the current server time in RFC3339 format
func GetTimeHandler(w http.ResponseWriter, r *http.Request) {
	auth.JSONResponse(w, http.StatusOK, map[string]string{"time": time.Now().Format(time.RFC3339)})
}

type loginPage struct {
	Clock    string
	Version  string
	HasLogo  bool
	CSRF     string
	Username string
	Error    string
}

type pageData struct {
	Title         string
	Page          string
	Username      string
	CSRF          string
	HasLogo       bool
	RefreshMillis int64
	Snapshot      dashboard.Snapshot
	History       []sensors.Reading
	Parameters    []sensors.Parameter
	Rules         []alerts.Rule
}

var pageTitles = map[string]string{
	"dashboard": "Dashboard",
	"reports":   "Reports",
	"analytics": "Analytics",
}

// ===== Login =====

func (s *Server) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	if s.auth.IsAuthenticated(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.renderLogin(w, r, http.StatusOK, "", "")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, username, msg string) {
	data := loginPage{
		Clock:    s.now().UTC().Format("2006-01-02 | 15:04:05") + " UTC",
		Version:  Version,
		HasLogo:  s.logo != nil,
		CSRF:     s.auth.CSRFToken(w, r),
		Username: username,
		Error:    msg,
	}
	s.writePage(w, status, "login", data)
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	req, err := auth.ParseLoginForm(r)
	if err != nil {
		s.metrics.Logins.WithLabelValues("invalid").Inc()
		s.renderLogin(w, r, http.StatusBadRequest, req.Username, "Please enter username and password")
		return
	}
	id, err := s.auth.Login(w, r, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.metrics.Logins.WithLabelValues("failure").Inc()
		s.log.Warn().Str("user", req.Username).Str("remote", r.RemoteAddr).Msg("login failed")
		s.renderLogin(w, r, http.StatusUnauthorized, req.Username, "Invalid credentials")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	if err := s.dash.Open(r.Context(), id.SessionID, id.Username); err != nil {
		s.log.Error().Err(err).Msg("failed to initialise session state")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	s.metrics.Logins.WithLabelValues("success").Inc()
	s.log.Info().Str("user", id.Username).Str("session", id.SessionID).Msg("login")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth.Logout(w, r)
	if err == nil {
		s.hub.closeSession(id.SessionID)
		if err := s.dash.Close(r.Context(), id.SessionID); err != nil {
			s.log.Error().Err(err).Str("session", id.SessionID).Msg("failed to discard session state")
		}
		s.log.Info().Str("user", id.Username).Str("session", id.SessionID).Msg("logout")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ===== Pages =====

func (s *Server) pageHandler(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		ctx := r.Context()
		if err := s.dash.SetPage(ctx, id.SessionID, id.Username, page); err != nil {
			s.pageError(w, r, err)
			return
		}
		snap, err := s.dash.Current(ctx, id.SessionID, id.Username)
		if err != nil {
			s.pageError(w, r, err)
			return
		}
		data := pageData{
			Title:         pageTitles[page],
			Page:          page,
			Username:      id.Username,
			CSRF:          s.auth.CSRFToken(w, r),
			HasLogo:       s.logo != nil,
			RefreshMillis: s.cfg.Server.RefreshInterval.Milliseconds(),
			Snapshot:      snap,
			Parameters:    sensors.Parameters,
		}
		switch page {
		case "reports":
			if data.History, err = s.dash.History(ctx, id.SessionID, id.Username); err != nil {
				s.pageError(w, r, err)
				return
			}
		case "analytics":
			data.Rules = alerts.DefaultRules(s.dash.Thresholds())
		}
		s.writePage(w, http.StatusOK, page, data)
	}
}

func (s *Server) writePage(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.render(&buf, page, data); err != nil {
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// pageError sends a browser whose session state is gone back to the login page.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrSessionNotFound) {
		s.auth.Logout(w, r)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.serverError(w, err)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// ===== API =====

// SnapshotHandler advances the session by one reading. It is the polling
// fallback for browsers without a live stream.
func (s *Server) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	snap, err := s.dash.Tick(r.Context(), id.SessionID, id.Username)
	if err != nil {
		auth.ErrorResponse(w, err)
		return
	}
	auth.JSONResponse(w, http.StatusOK, snap)
}

// SoundHandler toggles the alarm sound, or sets it from ?enabled=true|false.
func (s *Server) SoundHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var (
		on  bool
		err error
	)
	switch r.URL.Query().Get("enabled") {
	case "":
		on, err = s.dash.ToggleSound(r.Context(), id.SessionID, id.Username)
	case "true", "1":
		on, err = s.dash.SetSound(r.Context(), id.SessionID, id.Username, true)
	case "false", "0":
		on, err = s.dash.SetSound(r.Context(), id.SessionID, id.Username, false)
	default:
		auth.ErrorResponse(w, utils.New(http.StatusBadRequest, "enabled must be true or false"))
		return
	}
	if err != nil {
		auth.ErrorResponse(w, err)
		return
	}
	auth.JSONResponse(w, http.StatusOK, map[string]bool{"sound_enabled": on})
}
