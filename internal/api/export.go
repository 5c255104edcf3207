package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/harrylevesque/csms/internal/audio"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/chart"
	"github.com/harrylevesque/csms/internal/export"
)

// ChartHandler draws the live window as a PNG.
func (s *Server) ChartHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	snap, err := s.dash.Current(r.Context(), id.SessionID, id.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderLine(&buf, snap.Window); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			http.Error(w, "no data", http.StatusNotFound)
			return
		}
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

func (s *Server) ReportPDFHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	snap, err := s.dash.Current(r.Context(), id.SessionID, id.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	err = export.WritePDF(&buf, export.Report{
		Generated:  s.now(),
		Operator:   id.Username,
		Reading:    snap.Reading,
		Thresholds: s.dash.Thresholds(),
		Alerts:     snap.Alerts,
		Window:     snap.Window,
	})
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.download(w, "pdf", "application/pdf", export.Filename("report", s.now(), "pdf"), buf.Bytes())
}

func (s *Server) ReadingsCSVHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	snap, err := s.dash.Current(r.Context(), id.SessionID, id.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteReadingCSV(&buf, snap.Reading, s.dash.Thresholds()); err != nil {
		s.serverError(w, err)
		return
	}
	s.download(w, "csv", "text/csv; charset=utf-8", export.Filename("readings", s.now(), "csv"), buf.Bytes())
}

func (s *Server) WindowCSVHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	snap, err := s.dash.Current(r.Context(), id.SessionID, id.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteSeriesCSV(&buf, snap.Window, export.WindowLayout); err != nil {
		s.serverError(w, err)
		return
	}
	s.download(w, "csv", "text/csv; charset=utf-8", export.Filename("window", s.now(), "csv"), buf.Bytes())
}

func (s *Server) HistoryCSVHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	hist, err := s.dash.History(r.Context(), id.SessionID, id.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteSeriesCSV(&buf, hist, export.HistoryLayout); err != nil {
		s.serverError(w, err)
		return
	}
	s.download(w, "csv", "text/csv; charset=utf-8", export.Filename("history", s.now(), "csv"), buf.Bytes())
}

func (s *Server) download(w http.ResponseWriter, format, contentType, name string, data []byte) {
	s.metrics.Exports.WithLabelValues(format).Inc()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(data)
}

// ===== Assets =====

// LogoHandler serves the configured logo, or 404 so the page falls back to text.
func (s *Server) LogoHandler(w http.ResponseWriter, r *http.Request) {
	if s.logo == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", s.logo.ContentType)
	w.Write(s.logo.Data)
}

func (s *Server) clipHandler(c audio.Clip) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", c.ContentType)
		w.Header().Set("Cache-Control", "max-age=3600")
		w.Write(c.Data)
	}
}
