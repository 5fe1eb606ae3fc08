package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes Controller over HTTP for paired LAN clients.
type Server struct {
	controller Controller
	pairing    *pairingStore
	httpServer *http.Server
	debug      bool
}

// NewServer builds the remote-control server. secretHash is the bcrypt
// hash of the pairing secret configured by the user (Config.Remote.PairingSecretHash);
// an empty hash disables pairing entirely, so every request is rejected.
func NewServer(port int, secretHash string, controller Controller, debug bool) *Server {
	s := &Server{
		controller: controller,
		pairing:    newPairingStore(secretHash),
		debug:      debug,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if debug {
		r.Use(middleware.Logger)
	}

	r.Post("/pair", s.handlePair)

	r.Group(func(r chi.Router) {
		r.Use(s.pairing.requireSession)
		r.Get("/now-playing", s.handleNowPlaying)
		r.Get("/queue", s.handleQueue)
		r.Post("/control/{action}", s.handleControl)
		r.Get("/suggestions", s.handleSuggestions)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return s
}

// Start begins serving in the background. Bind errors other than a clean
// shutdown are logged, matching how the rest of this module treats
// background-goroutine failures.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[REMOTE] server error: %v", err)
		}
	}()
	log.Printf("[REMOTE] listening on %s", s.httpServer.Addr)
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type pairRequest struct {
	Secret string `json:"secret"`
}

type pairResponse struct {
	Token string `json:"token"`
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, ok := s.pairing.Pair(req.Secret)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, pairResponse{Token: token})
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.NowPlaying())
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Queue())
}

type controlRequest struct {
	PositionSecs float64 `json:"position_secs"`
	Volume       float64 `json:"volume"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	var req controlRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	var err error
	switch action {
	case "play":
		err = s.controller.Play()
	case "pause":
		err = s.controller.Pause()
	case "next":
		err = s.controller.Next()
	case "previous":
		err = s.controller.Previous()
	case "seek":
		err = s.controller.Seek(req.PositionSecs)
	case "volume":
		err = s.controller.SetVolume(req.Volume)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.controller.Suggestions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
