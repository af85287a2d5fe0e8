package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/scenesync/internal/auth"
	"github.com/nerrad567/scenesync/internal/infrastructure/config"
	"github.com/nerrad567/scenesync/internal/infrastructure/logging"
	"github.com/nerrad567/scenesync/internal/orchestrator"
	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/scenario"
	"github.com/nerrad567/scenesync/internal/shadow"
)

const testSecret = "api-test-secret-at-least-32-bytes!!!"

// mockEngine is a canned transition engine for handler tests.
type mockEngine struct {
	active      string
	activateRes *orchestrator.ActivationResult
	activateErr error
	shutdownRes *orchestrator.ActivationResult
	shutdownErr error

	mu           sync.Mutex
	activatedIDs []string
}

func (m *mockEngine) Activate(_ context.Context, scenarioID string) (*orchestrator.ActivationResult, error) {
	m.mu.Lock()
	m.activatedIDs = append(m.activatedIDs, scenarioID)
	m.mu.Unlock()

	if m.activateErr != nil {
		return nil, m.activateErr
	}
	return m.activateRes, nil
}

func (m *mockEngine) ShutdownRoom(_ context.Context, _ string) (*orchestrator.ActivationResult, error) {
	if m.shutdownErr != nil {
		return nil, m.shutdownErr
	}
	return m.shutdownRes, nil
}

func (m *mockEngine) ActiveScenario() string { return m.active }

// memShadowRepo is a minimal in-memory shadow repository for seeding
// the store in tests.
type memShadowRepo struct {
	mu      sync.Mutex
	entries map[shadow.Key]shadow.Entry
}

func (r *memShadowRepo) Save(_ context.Context, key shadow.Key, entry shadow.Entry) error {
	r.mu.Lock()
	if r.entries == nil {
		r.entries = make(map[shadow.Key]shadow.Entry)
	}
	r.entries[key] = entry
	r.mu.Unlock()
	return nil
}

func (r *memShadowRepo) LoadAll(context.Context) (map[shadow.Key]shadow.Entry, error) {
	return map[shadow.Key]shadow.Entry{}, nil
}

func (r *memShadowRepo) Delete(context.Context, shadow.Key) error { return nil }

func testRegistries(t *testing.T) (*registry.Registry, *scenario.Registry) {
	t.Helper()

	devices, err := registry.Load(registry.Definitions{
		Devices: []registry.Device{
			{
				ID: "amp-1",
				Cells: []registry.Cell{
					{ID: "power", Kind: registry.CellKindToggle, CooldownSeconds: 10},
					{ID: "input", Kind: registry.CellKindState, Value: registry.ValueKindText},
				},
			},
		},
		Rooms: []registry.Room{
			{ID: "cinema", DeviceIDs: []string{"amp-1"}},
		},
	})
	if err != nil {
		t.Fatalf("loading device fixtures: %v", err)
	}

	scenarios, err := scenario.Load([]scenario.Scenario{
		{
			ID:   "listen-cd",
			Name: "Listen to CD",
			Targets: []scenario.Target{
				{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("cd")},
			},
		},
	}, devices)
	if err != nil {
		t.Fatalf("loading scenario fixtures: %v", err)
	}

	return devices, scenarios
}

// newTestServer builds a server and returns its router for httptest use.
func newTestServer(t *testing.T, engine Engine, secret string) (*Server, http.Handler) {
	t.Helper()

	devices, scenarios := testRegistries(t)
	store := shadow.NewStore(&memShadowRepo{})

	s, err := New(Deps{
		Security:  config.SecurityConfig{JWT: config.JWTConfig{Secret: secret}},
		Logger:    logging.Default(),
		Devices:   devices,
		Scenarios: scenarios,
		Engine:    engine,
		Shadow:    store,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, s.buildRouter()
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response body: %v\n%s", err, rec.Body.String())
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health body = %v", body)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_OpenWithoutSecret(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, "")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 in open mode", rec.Code)
	}
}

func validToken(t *testing.T) string {
	t.Helper()

	token, err := auth.IssueToken("panel-1", "control", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return token
}

func TestListScenarios(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{active: "listen-cd"}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/", validToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Scenarios []scenarioSummary `json:"scenarios"`
		Active    string            `json:"active"`
	}
	decodeBody(t, rec, &body)
	if body.Active != "listen-cd" {
		t.Errorf("active = %q, want listen-cd", body.Active)
	}
	if len(body.Scenarios) != 1 || !body.Scenarios[0].Active {
		t.Errorf("scenarios = %+v", body.Scenarios)
	}
}

func TestGetScenario_NotFound(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/scenarios/party-mode", validToken(t))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestActivateScenario(t *testing.T) {
	engine := &mockEngine{
		activateRes: &orchestrator.ActivationResult{
			ID:         "act-1",
			Kind:       orchestrator.KindActivate,
			ScenarioID: "listen-cd",
			Status:     orchestrator.StatusComplete,
			Switched:   true,
		},
	}
	_, router := newTestServer(t, engine, testSecret)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/scenarios/listen-cd/activate", validToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	var result orchestrator.ActivationResult
	decodeBody(t, rec, &result)
	if result.ID != "act-1" || !result.Switched {
		t.Errorf("result = %+v", result)
	}
	if len(engine.activatedIDs) != 1 || engine.activatedIDs[0] != "listen-cd" {
		t.Errorf("engine saw activations %v", engine.activatedIDs)
	}
}

func TestActivateScenario_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown scenario", scenario.ErrUnknownScenario, http.StatusNotFound},
		{"queue full", orchestrator.ErrQueueFull, http.StatusServiceUnavailable},
		{"not running", orchestrator.ErrNotRunning, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := newTestServer(t, &mockEngine{activateErr: tt.err}, testSecret)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/scenarios/listen-cd/activate", validToken(t))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestShutdownRoom(t *testing.T) {
	engine := &mockEngine{
		shutdownRes: &orchestrator.ActivationResult{
			ID:     "act-2",
			Kind:   orchestrator.KindShutdown,
			RoomID: "cinema",
			Status: orchestrator.StatusComplete,
		},
	}
	_, router := newTestServer(t, engine, testSecret)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/rooms/cinema/shutdown", validToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result orchestrator.ActivationResult
	decodeBody(t, rec, &result)
	if result.RoomID != "cinema" {
		t.Errorf("result = %+v", result)
	}
}

func TestShutdownRoom_Unknown(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{shutdownErr: registry.ErrUnknownRoom}, testSecret)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/rooms/attic/shutdown", validToken(t))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetDevice_WithShadow(t *testing.T) {
	s, router := newTestServer(t, &mockEngine{}, testSecret)
	if err := s.shadow.Set(context.Background(), "amp-1", "input", shadow.TextValue("cd")); err != nil {
		t.Fatalf("seeding shadow: %v", err)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/devices/amp-1", validToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Shadow map[string]shadow.Value `json:"shadow"`
	}
	decodeBody(t, rec, &body)
	if !body.Shadow["input"].Equal(shadow.TextValue("cd")) {
		t.Errorf("input shadow = %v, want cd", body.Shadow["input"])
	}
	// Never actuated, reported as the explicit Unknown variant.
	if !body.Shadow["power"].IsUnknown() {
		t.Errorf("power shadow = %v, want Unknown", body.Shadow["power"])
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/devices/ghost-1", validToken(t))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetState(t *testing.T) {
	s, router := newTestServer(t, &mockEngine{}, testSecret)
	if err := s.shadow.Set(context.Background(), "amp-1", "input", shadow.TextValue("cd")); err != nil {
		t.Fatalf("seeding shadow: %v", err)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/state", validToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Cells int `json:"cells"`
	}
	decodeBody(t, rec, &body)
	if body.Cells != 1 {
		t.Errorf("cells = %d, want 1", body.Cells)
	}
}

func TestListActivations_NotConfigured(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/activations", validToken(t))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestListActivations_BadLimit(t *testing.T) {
	s, router := newTestServer(t, &mockEngine{}, testSecret)
	s.activations = &stubActivations{}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/activations?limit=zero", validToken(t))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListActivations(t *testing.T) {
	s, router := newTestServer(t, &mockEngine{}, testSecret)
	s.activations = &stubActivations{results: []orchestrator.ActivationResult{
		{ID: "act-1", Kind: orchestrator.KindActivate, ScenarioID: "listen-cd"},
	}}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/activations?limit=10", validToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Activations []orchestrator.ActivationResult `json:"activations"`
	}
	decodeBody(t, rec, &body)
	if len(body.Activations) != 1 || body.Activations[0].ID != "act-1" {
		t.Errorf("activations = %+v", body.Activations)
	}
}

type stubActivations struct {
	results []orchestrator.ActivationResult
}

func (s *stubActivations) Record(context.Context, *orchestrator.ActivationResult) error {
	return nil
}

func (s *stubActivations) List(context.Context, int) ([]orchestrator.ActivationResult, error) {
	return s.results, nil
}

func TestRequestIDHeader(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, testSecret)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response has no X-Request-ID header")
	}
}
