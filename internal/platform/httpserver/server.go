package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	policyservice "polaris/contexts/directory-governance/policy-service"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "polaris/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	policy policyservice.Module
}

func New(policyModule policyservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		policy: policyModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/policy/v1/policies", s.handleCreatePolicy)
	s.mux.HandleFunc("GET /api/policy/v1/policies", s.handleListPolicies)
	s.mux.HandleFunc("GET /api/policy/v1/policies/{policy_id}", s.handleGetPolicy)
	s.mux.HandleFunc("PUT /api/policy/v1/policies/{policy_id}", s.handleUpdatePolicy)
	s.mux.HandleFunc("DELETE /api/policy/v1/policies/{policy_id}", s.handleDeletePolicy)
	s.mux.HandleFunc("GET /api/policy/v1/users/{user_id}/effective-settings", s.handleEffectiveSettings)
	s.mux.HandleFunc("GET /api/policy/v1/users/{user_id}/conflicts", s.handleConflicts)
	s.mux.HandleFunc("GET /api/policy/v1/users/{user_id}/policy-value", s.handlePolicyValue)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
