package api

import (
	"embed"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harrylevesque/csms/internal/audio"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/config"
	"github.com/harrylevesque/csms/internal/dashboard"
	"github.com/harrylevesque/csms/internal/files"
	"github.com/harrylevesque/csms/internal/metrics"
	"github.com/rs/zerolog"
)

// Version is shown on the login page.
const Version = "v2.1.7"

//go:embed templates/*.html
var templateFS embed.FS

// Server holds everything the HTTP handlers need.
type Server struct {
	cfg     *config.Config
	auth    *auth.Auth
	dash    *dashboard.Service
	metrics *metrics.Metrics
	log     zerolog.Logger

	pages    map[string]*template.Template
	logo     *files.Asset
	alarm    audio.Clip
	success  audio.Clip
	upgrader websocket.Upgrader
	hub      *hub
	now      func() time.Time
}

// NewServer parses the templates and loads the static assets. Missing assets
// are not an error: the logo is left out and the sounds are synthesized.
func NewServer(cfg *config.Config, a *auth.Auth, dash *dashboard.Service, m *metrics.Metrics, log zerolog.Logger) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		auth:     a,
		dash:     dash,
		metrics:  m,
		log:      log,
		pages:    pages,
		alarm:    audio.Alarm(cfg.Assets.AlarmSound),
		success:  audio.Success(cfg.Assets.SuccessSound),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		hub:      newHub(),
		now:      time.Now,
	}
	if logo, err := files.FirstAsset(cfg.Assets.Logo); err == nil {
		s.logo = &logo
	} else {
		log.Debug().Strs("paths", cfg.Assets.Logo).Msg("no logo found, using text fallback")
	}
	if s.alarm.Synthesized {
		log.Debug().Str("path", cfg.Assets.AlarmSound).Msg("alarm sound not found, using synthesized tone")
	}
	return s, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	login, err := template.ParseFS(templateFS, "templates/login.html")
	if err != nil {
		return nil, err
	}
	pages["login"] = login
	for _, name := range []string{"dashboard", "reports", "analytics"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t.Lookup("layout")
	}
	return pages, nil
}

func (s *Server) render(w io.Writer, page string, data any) error {
	t := s.pages[page]
	if page == "login" {
		return t.Execute(w, data)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// Shutdown closes every live stream.
func (s *Server) Shutdown() {
	s.hub.closeAll()
}

// hub tracks live streams per dashboard session so logout can end them.
type hub struct {
	mu     sync.Mutex
	next   int
	cancel map[string]map[int]func()
}

func newHub() *hub {
	return &hub{cancel: make(map[string]map[int]func())}
}

func (h *hub) add(sessionID string, cancel func()) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	n := h.next
	if h.cancel[sessionID] == nil {
		h.cancel[sessionID] = make(map[int]func())
	}
	h.cancel[sessionID][n] = cancel
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.cancel[sessionID], n)
		if len(h.cancel[sessionID]) == 0 {
			delete(h.cancel, sessionID)
		}
	}
}

func (h *hub) closeSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.cancel[sessionID] {
		c()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.cancel {
		for _, c := range conns {
			c()
		}
	}
}
