package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/artisanhub/craft-ai-bridge/accounts"
	"github.com/artisanhub/craft-ai-bridge/actions"
	"github.com/artisanhub/craft-ai-bridge/flow"
	"github.com/artisanhub/craft-ai-bridge/schema"
)

type stubExecutor struct {
	result *flow.Result
	err    error
	values map[string]string
}

func (s *stubExecutor) Execute(ctx context.Context, name flow.Name, values map[string]string) (*flow.Result, error) {
	s.values = values
	return s.result, s.err
}

func newTestServer(t *testing.T, exec actions.Executor) *Server {
	t.Helper()
	flow.RegisterBuiltins()
	adapter := actions.NewAdapter(exec)
	signUp := actions.NewSignUpAction(accounts.StubCreator{}, nil)
	return New(":0", adapter, WithSignUp(signUp))
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestServer_ListFlows(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/flows", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Flows []string `json:"flows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	found := false
	for _, name := range body.Flows {
		if name == flow.AnalyzeFeedback {
			found = true
		}
	}
	if !found {
		t.Errorf("flows = %v, missing analyzeFeedback", body.Flows)
	}
}

func TestServer_RunFlow_UnknownFlowIs404(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/noSuchFlow", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServer_RunFlow_JSONBody(t *testing.T) {
	exec := &stubExecutor{result: &flow.Result{
		Flow:         flow.AnalyzeFeedback,
		InvocationID: "inv-1",
		Output:       json.RawMessage(`{"category":"Praise","summary":"Loves it.","sentiment":"Positive"}`),
	}}
	srv := newTestServer(t, exec)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/analyzeFeedback",
		strings.NewReader(`{"feedback":"This scarf is gorgeous, thank you so much!"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var state actions.State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if state.Status != actions.StatusSuccess {
		t.Errorf("Status = %q", state.Status)
	}
	if exec.values["feedback"] == "" {
		t.Error("JSON fields not forwarded to the flow")
	}
}

func TestServer_RunFlow_FormBody(t *testing.T) {
	exec := &stubExecutor{result: &flow.Result{
		Flow:   flow.SuggestPrice,
		Output: json.RawMessage(`{"suggestedPriceRange":{"min":20,"max":35},"reasoning":"Comparable listings."}`),
	}}
	srv := newTestServer(t, exec)

	form := url.Values{}
	form.Set("productName", "Ash-glazed mug")
	form.Set("productDescription", "Hand-thrown stoneware mug.")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/suggestPrice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if exec.values["productName"] != "Ash-glazed mug" {
		t.Errorf("form fields not forwarded: %v", exec.values)
	}
}

func TestServer_RunFlow_ValidationFailureIs422(t *testing.T) {
	fields := schema.FieldErrors{}
	fields.Add("feedback", "must be at least 10 characters")
	exec := &stubExecutor{err: &flow.Error{
		Kind:    flow.KindValidation,
		Flow:    flow.AnalyzeFeedback,
		Message: "Please correct the highlighted fields.",
		Fields:  fields,
	}}
	srv := newTestServer(t, exec)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/analyzeFeedback", strings.NewReader(`{"feedback":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var state actions.State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(state.Errors["feedback"]) == 0 {
		t.Errorf("field errors missing: %+v", state)
	}
}

func TestServer_RunFlow_ProviderFailureIs502(t *testing.T) {
	exec := &stubExecutor{err: &flow.Error{
		Kind:    flow.KindProviderUnavailable,
		Flow:    flow.AnalyzeFeedback,
		Message: "The assistant is temporarily unavailable. Please try again in a moment.",
	}}
	srv := newTestServer(t, exec)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/analyzeFeedback",
		strings.NewReader(`{"feedback":"A perfectly reasonable piece of feedback."}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestServer_RunFlow_MalformedJSONIs400(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/analyzeFeedback", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServer_SignUp(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/signup",
		strings.NewReader(`{"email":"bad","password":"short","confirmPassword":"other"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var state actions.State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(state.Errors) == 0 {
		t.Error("expected field errors")
	}
}
