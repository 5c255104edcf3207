package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/harrylevesque/csms/internal/auth"
)

func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger, recoverer(s.log))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintln(w, "OK"); err != nil {
			s.log.Debug().Err(err).Msg("health write failed")
		}
	}).Methods("GET")
	r.HandleFunc("/time", GetTimeHandler).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// public assets, the login page uses them
	r.HandleFunc("/logo.png", s.LogoHandler).Methods("GET")
	r.HandleFunc("/audio/alarm.wav", s.clipHandler(s.alarm)).Methods("GET")
	r.HandleFunc("/audio/success.wav", s.clipHandler(s.success)).Methods("GET")

	r.HandleFunc("/login", s.LoginPageHandler).Methods("GET")
	r.Handle("/login", auth.CSRFMiddleware(http.HandlerFunc(s.LoginHandler))).Methods("POST")
	r.Handle("/logout", auth.CSRFMiddleware(http.HandlerFunc(s.LogoutHandler))).Methods("POST")

	pages := r.NewRoute().Subrouter()
	pages.Use(s.auth.Middleware)
	pages.HandleFunc("/", s.pageHandler("dashboard")).Methods("GET")
	pages.HandleFunc("/reports", s.pageHandler("reports")).Methods("GET")
	pages.HandleFunc("/analytics", s.pageHandler("analytics")).Methods("GET")
	pages.HandleFunc("/chart.png", s.ChartHandler).Methods("GET")
	pages.HandleFunc("/export/report.pdf", s.ReportPDFHandler).Methods("GET")
	pages.HandleFunc("/export/readings.csv", s.ReadingsCSVHandler).Methods("GET")
	pages.HandleFunc("/export/window.csv", s.WindowCSVHandler).Methods("GET")
	pages.HandleFunc("/export/history.csv", s.HistoryCSVHandler).Methods("GET")

	apiR := r.PathPrefix("/api").Subrouter()
	apiR.Use(s.auth.APIMiddleware)
	apiR.HandleFunc("/snapshot", s.SnapshotHandler).Methods("GET")
	apiR.Handle("/sound", auth.CSRFMiddleware(http.HandlerFunc(s.SoundHandler))).Methods("POST")

	r.Handle("/ws", s.auth.APIMiddleware(http.HandlerFunc(s.WSHandler))).Methods("GET")
	return r
}
