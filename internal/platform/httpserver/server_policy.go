package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	policyerrors "polaris/contexts/directory-governance/policy-service/domain/errors"
	policyhttp "polaris/contexts/directory-governance/policy-service/transport/http"
)

func (s *Server) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyhttp.PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePolicyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.policy.Handler.CreatePolicyHandler(
		r.Context(),
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	resp, err := s.policy.Handler.ListPoliciesHandler(r.Context())
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	resp, err := s.policy.Handler.GetPolicyHandler(r.Context(), r.PathValue("policy_id"))
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyhttp.PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePolicyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.policy.Handler.UpdatePolicyHandler(
		r.Context(),
		r.Header.Get("Idempotency-Key"),
		r.PathValue("policy_id"),
		req,
	)
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	resp, err := s.policy.Handler.DeletePolicyHandler(
		r.Context(),
		r.Header.Get("Idempotency-Key"),
		r.PathValue("policy_id"),
	)
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEffectiveSettings(w http.ResponseWriter, r *http.Request) {
	skipCache := strings.EqualFold(r.URL.Query().Get("skip_cache"), "true")
	resp, err := s.policy.Handler.GetEffectiveSettingsHandler(
		r.Context(),
		r.PathValue("user_id"),
		skipCache,
	)
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.policy.Handler.GetConflictsHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePolicyValue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	policyType := query.Get("type")
	settingPath := query.Get("path")
	if policyType == "" || settingPath == "" {
		writePolicyError(w, http.StatusBadRequest, "invalid_request", "type and path query parameters are required")
		return
	}

	resp, err := s.policy.Handler.GetPolicyValueHandler(
		r.Context(),
		r.PathValue("user_id"),
		policyType,
		settingPath,
	)
	if err != nil {
		writePolicyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePolicyDomainError(w http.ResponseWriter, err error) {
	var validationErr *policyerrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writePolicyError(w, http.StatusUnprocessableEntity, "invalid_settings", err.Error())
	case errors.Is(err, policyerrors.ErrSettingsTypeMismatch):
		writePolicyError(w, http.StatusUnprocessableEntity, "settings_type_mismatch", err.Error())
	case errors.Is(err, policyerrors.ErrInvalidUserID),
		errors.Is(err, policyerrors.ErrInvalidPolicyID),
		errors.Is(err, policyerrors.ErrInvalidPolicyName),
		errors.Is(err, policyerrors.ErrInvalidPolicyType),
		errors.Is(err, policyerrors.ErrInvalidPolicyScope):
		writePolicyError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, policyerrors.ErrIdempotencyKeyRequired):
		writePolicyError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, policyerrors.ErrUserNotFound),
		errors.Is(err, policyerrors.ErrOUNotFound),
		errors.Is(err, policyerrors.ErrGroupNotFound),
		errors.Is(err, policyerrors.ErrPolicyNotFound):
		writePolicyError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, policyerrors.ErrIdempotencyConflict):
		writePolicyError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, policyerrors.ErrStoreUnavailable):
		writePolicyError(w, http.StatusServiceUnavailable, "store_unavailable", "policy store unavailable")
	default:
		writePolicyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePolicyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, policyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
