package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	policyservice "polaris/contexts/directory-governance/policy-service"
	"polaris/contexts/directory-governance/policy-service/domain/entities"
	policyhttp "polaris/contexts/directory-governance/policy-service/transport/http"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func newTestServer(t *testing.T) (*Server, policyservice.Module) {
	t.Helper()
	module := policyservice.NewInMemoryModule(nil, nil)
	module.Store.AddOU(entities.OrganizationUnit{OUID: "ou-root", Name: "Corp"})
	module.Store.AddOU(entities.OrganizationUnit{OUID: "ou-eng", Name: "Engineering", ParentID: strPtr("ou-root")})
	module.Store.AddUser(entities.EnterpriseUser{UserID: "user-1", OUID: "ou-eng"})
	return New(module, nil, ""), module
}

func doJSON(t *testing.T, server *Server, method, path, idempotencyKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	request := httptest.NewRequest(method, path, &payload)
	if idempotencyKey != "" {
		request.Header.Set("Idempotency-Key", idempotencyKey)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	return recorder
}

func TestPolicyRoutesCreateAndResolve(t *testing.T) {
	server, _ := newTestServer(t)

	created := doJSON(t, server, http.MethodPost, "/api/policy/v1/policies", "idem-1", policyhttp.PolicyRequest{
		PolicyName: "corp-baseline",
		Type:       "password",
		Scope:      "ou",
		TargetOUs:  []string{"ou-eng"},
		Enforced:   true,
		Enabled:    true,
		Settings: entities.Settings{
			Password: &entities.PasswordSettings{MinimumLength: intPtr(12)},
		},
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var createResponse policyhttp.CreatePolicyResponse
	if err := json.Unmarshal(created.Body.Bytes(), &createResponse); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if createResponse.Policy.PolicyID == "" {
		t.Fatal("expected a policy id")
	}

	resolved := doJSON(t, server, http.MethodGet, "/api/policy/v1/users/user-1/effective-settings", "", nil)
	if resolved.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resolved.Code, resolved.Body.String())
	}
	var effective policyhttp.EffectiveSettingsResponse
	if err := json.Unmarshal(resolved.Body.Bytes(), &effective); err != nil {
		t.Fatalf("decode effective response: %v", err)
	}
	password, ok := effective.Policies["password"]
	if !ok || *password.Settings.Password.MinimumLength != 12 {
		t.Fatalf("unexpected effective payload %s", resolved.Body.String())
	}

	value := doJSON(t, server, http.MethodGet, "/api/policy/v1/users/user-1/policy-value?type=password&path=minimumLength", "", nil)
	if value.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", value.Code, value.Body.String())
	}
	var valueResponse policyhttp.PolicyValueResponse
	if err := json.Unmarshal(value.Body.Bytes(), &valueResponse); err != nil {
		t.Fatalf("decode value response: %v", err)
	}
	if !valueResponse.Set || valueResponse.Value != float64(12) {
		t.Fatalf("unexpected value payload %s", value.Body.String())
	}
}

func TestPolicyRoutesErrorMapping(t *testing.T) {
	server, _ := newTestServer(t)

	validRequest := policyhttp.PolicyRequest{
		PolicyName: "corp-baseline",
		Type:       "password",
		Scope:      "ou",
		TargetOUs:  []string{"ou-eng"},
		Enabled:    true,
		Settings: entities.Settings{
			Password: &entities.PasswordSettings{MinimumLength: intPtr(12)},
		},
	}

	missingKey := doJSON(t, server, http.MethodPost, "/api/policy/v1/policies", "", validRequest)
	if missingKey.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", missingKey.Code)
	}

	invalid := validRequest
	invalid.Settings = entities.Settings{
		Password: &entities.PasswordSettings{MinimumLength: intPtr(0)},
	}
	rejected := doJSON(t, server, http.MethodPost, "/api/policy/v1/policies", "idem-bad", invalid)
	if rejected.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range settings, got %d", rejected.Code)
	}
	var errorResponse policyhttp.ErrorResponse
	if err := json.Unmarshal(rejected.Body.Bytes(), &errorResponse); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errorResponse.Code != "invalid_settings" {
		t.Fatalf("unexpected error code %s", errorResponse.Code)
	}

	mismatch := validRequest
	mismatch.Settings = entities.Settings{
		Session: &entities.SessionSettings{MaxSessionDuration: intPtr(3600)},
	}
	mismatched := doJSON(t, server, http.MethodPost, "/api/policy/v1/policies", "idem-mismatch", mismatch)
	if mismatched.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for type mismatch, got %d", mismatched.Code)
	}

	notJSON := httptest.NewRequest(http.MethodPost, "/api/policy/v1/policies", bytes.NewBufferString("{"))
	notJSON.Header.Set("Idempotency-Key", "idem-json")
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, notJSON)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", recorder.Code)
	}

	unknownPolicy := doJSON(t, server, http.MethodGet, "/api/policy/v1/policies/pol-missing", "", nil)
	if unknownPolicy.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown policy, got %d", unknownPolicy.Code)
	}

	unknownUser := doJSON(t, server, http.MethodGet, "/api/policy/v1/users/user-missing/effective-settings", "", nil)
	if unknownUser.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", unknownUser.Code)
	}

	missingQuery := doJSON(t, server, http.MethodGet, "/api/policy/v1/users/user-1/policy-value?type=password", "", nil)
	if missingQuery.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing path query, got %d", missingQuery.Code)
	}
}
