package main

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server wires the HTTP surface (spec.md §6 "out of scope" transport)
// onto the Request Orchestrator and Bulk Executor, grounded on
// forgedlabs-mail_sorter's Server/setupRoutes shape with routes
// renamed to match spec.md §6's endpoint table.
type Server struct {
	orchestrator *RequestOrchestrator
	bulk         *BulkExecutor
	limiter      *RateLimiter
	log          *logrus.Logger
	router       *mux.Router
	staticDir    string
}

func NewServer(orchestrator *RequestOrchestrator, bulk *BulkExecutor, limiter *RateLimiter, log *logrus.Logger, staticDir string) *Server {
	s := &Server{
		orchestrator: orchestrator,
		bulk:         bulk,
		limiter:      limiter,
		log:          log,
		router:       mux.NewRouter(),
		staticDir:    staticDir,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/verify", s.handleVerify).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/bulk-verify", s.handleBulkVerify).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}

	s.router.Use(corsMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(recoveryMiddleware(s.log))
}

type verifyRequest struct {
	Email string `json:"email"`
}

type bulkVerifyRequest struct {
	Emails []string `json:"emails"`
}

type bulkVerifyResponse struct {
	Results []Verdict `json:"results"`
	Count   int       `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(r.Context(), clientIdentity(r), EndpointVerify) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Rate limit exceeded"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Email is required"})
		return
	}

	verdict, err := s.orchestrator.Verify(r.Context(), req.Email)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Email is required"})
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleBulkVerify(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(r.Context(), clientIdentity(r), EndpointBulkVerify) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Rate limit exceeded"})
		return
	}

	var req bulkVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Emails) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "A non-empty list of emails is required"})
		return
	}

	results := s.bulk.VerifyAll(r.Context(), req.Emails)
	writeJSON(w, http.StatusOK, bulkVerifyResponse{Results: results, Count: len(results)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte("# HELP email_verifier_up Whether the email verification service is up\n"))
	w.Write([]byte("# TYPE email_verifier_up gauge\n"))
	w.Write([]byte("email_verifier_up 1\n"))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// clientIdentity derives the rate-limiter key from the request's
// remote address, stripping the ephemeral port so repeat connections
// from the same client share one bucket.
func clientIdentity(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Info("request handled")
	})
}

func recoveryMiddleware(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithField("panic", rec).Error("recovered from panic in handler")
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
