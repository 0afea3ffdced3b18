package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hvmc/store-backend/internal/oauth"
)

func newOAuthTestHandler(t *testing.T, client *fakeClient) *Handler {
	t.Helper()
	flow := oauth.NewFlow("client-id", "client-secret", "http://localhost:8000/oauth2/callback", testLogger())
	exporter := NewExporter(exportFixture(t), testLogger())
	handler := NewHandler(flow, exporter, "service-account.json", "manager@example.com", testLogger())
	handler.newServiceClient = func(context.Context, string) (SpreadsheetClient, error) {
		return client, nil
	}
	return handler
}

func TestOAuthInitRedirects(t *testing.T) {
	handler := newOAuthTestHandler(t, &fakeClient{})

	req := httptest.NewRequest("GET", "/oauth2/init", nil)
	rec := httptest.NewRecorder()
	handler.OAuthInit(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("Expected 302, got %d", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Errorf("Expected redirect to Google, got %q", location)
	}
	if !strings.Contains(location, "state=") || !strings.Contains(location, "access_type=offline") {
		t.Errorf("Authorization URL missing parameters: %q", location)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value == "" {
		t.Errorf("Expected a session cookie, got %+v", cookies)
	}
}

func TestOAuthInitKeepsExistingSession(t *testing.T) {
	handler := newOAuthTestHandler(t, &fakeClient{})

	req := httptest.NewRequest("GET", "/oauth2/init", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "existing-session"})
	rec := httptest.NewRecorder()
	handler.OAuthInit(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("Expected 302, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("An existing session cookie must not be replaced")
	}
}

func TestOAuthCallbackWithoutSession(t *testing.T) {
	handler := newOAuthTestHandler(t, &fakeClient{})

	req := httptest.NewRequest("GET", "/oauth2/callback?state=x&code=y", nil)
	rec := httptest.NewRecorder()
	handler.OAuthCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without a session, got %d", rec.Code)
	}
}

func TestOAuthCallbackWithoutPendingState(t *testing.T) {
	handler := newOAuthTestHandler(t, &fakeClient{})

	req := httptest.NewRequest("GET", "/oauth2/callback?state=x&code=y", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-1"})
	rec := httptest.NewRecorder()
	handler.OAuthCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without pending state, got %d", rec.Code)
	}
}

func TestAdminExport(t *testing.T) {
	client := &fakeClient{}
	handler := newOAuthTestHandler(t, client)

	body := `{"date":"2024-01-05","email":"finance@example.com"}`
	req := httptest.NewRequest("POST", "/admin/export", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.AdminExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["spreadsheet_id"] != "sheet-123" {
		t.Errorf("Unexpected spreadsheet id %v", resp["spreadsheet_id"])
	}
	if resp["url"] != SpreadsheetURL("sheet-123") {
		t.Errorf("Unexpected url %v", resp["url"])
	}

	if client.createdTitle != "Orders Export - 2024-01-05" {
		t.Errorf("Unexpected title %q", client.createdTitle)
	}
	if client.sharedEmail != "finance@example.com" {
		t.Errorf("Expected explicit share email, got %q", client.sharedEmail)
	}
}

func TestAdminExportDefaults(t *testing.T) {
	client := &fakeClient{}
	handler := newOAuthTestHandler(t, client)

	req := httptest.NewRequest("POST", "/admin/export", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.AdminExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if client.sharedEmail != "manager@example.com" {
		t.Errorf("Expected configured default email, got %q", client.sharedEmail)
	}
	wantTitle := "Orders Export - " + time.Now().Format("2006-01-02")
	if client.createdTitle != wantTitle {
		t.Errorf("Expected today's title %q, got %q", wantTitle, client.createdTitle)
	}
}

func TestAdminExportBadDate(t *testing.T) {
	handler := newOAuthTestHandler(t, &fakeClient{})

	req := httptest.NewRequest("POST", "/admin/export", strings.NewReader(`{"date":"05/01/2024"}`))
	rec := httptest.NewRecorder()
	handler.AdminExport(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a bad date, got %d", rec.Code)
	}
}

func TestAdminExportUnconfigured(t *testing.T) {
	handler := newOAuthTestHandler(t, &fakeClient{})
	handler.serviceAccountFile = ""

	req := httptest.NewRequest("POST", "/admin/export", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.AdminExport(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 when unconfigured, got %d", rec.Code)
	}
}
