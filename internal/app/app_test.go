package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsev/fleetwatch/internal/config"
	"github.com/okutsev/fleetwatch/internal/testutil"
)

const openAPISpecPath = "../../api/openapi/openapi.yaml"

type apiTest struct {
	server    *httptest.Server
	validator *testutil.OpenAPIValidator
	token     string
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()

	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: "memory"},
		Log:     config.LogConfig{Level: "error", Format: "json"},
		JWT: config.JWTConfig{
			SecretKey:           "test-secret",
			AccessTokenDuration: 15 * time.Minute,
		},
		// Long intervals keep the background loops quiet during tests.
		Alerting:   config.AlertingConfig{DispatchInterval: time.Hour},
		Collectors: config.CollectorsConfig{MonitorInterval: time.Hour, StaleAfter: 5 * time.Minute},
	}

	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Shutdown(ctx)
	})

	server := httptest.NewServer(application.Router())
	t.Cleanup(server.Close)

	at := &apiTest{
		server:    server,
		validator: testutil.NewOpenAPIValidator(t, openAPISpecPath),
	}
	at.token = at.login(t, "admin", "password")
	return at
}

func (at *apiTest) login(t *testing.T, username, password string) string {
	t.Helper()

	resp, body := at.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	return data["token"].(string)
}

// do performs a request, validates the exchange against the OpenAPI spec,
// and returns the decoded JSON body.
func (at *apiTest) do(t *testing.T, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var reqBody *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, at.server.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	at.validator.ValidateResponse(t, req, resp)

	var body map[string]any
	if resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	_ = resp.Body.Close()
	return resp, body
}

func TestAPI_Unauthorized(t *testing.T) {
	at := newAPITest(t)

	resp, _ := at.do(t, http.MethodGet, "/api/v1/alerts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_AlertLifecycle(t *testing.T) {
	at := newAPITest(t)

	resp, body := at.do(t, http.MethodPost, "/api/v1/alerts", at.token, map[string]any{
		"source_type": "metric",
		"alert_type":  "cpu_high",
		"severity":    "critical",
		"message":     "CPU above 95% for 10 minutes",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	alert := body["data"].(map[string]any)
	alertID := alert["id"].(string)
	assert.Equal(t, "open", alert["status"])
	assert.Nil(t, alert["resolved_at"])

	resp, body = at.do(t, http.MethodPost, fmt.Sprintf("/api/v1/alerts/%s/ack", alertID), at.token, map[string]any{
		"comment": "investigating",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alert = body["data"].(map[string]any)
	assert.Equal(t, "acknowledged", alert["status"])
	assert.Equal(t, "investigating", alert["ack_comment"])

	resp, body = at.do(t, http.MethodPost, fmt.Sprintf("/api/v1/alerts/%s/close", alertID), at.token, map[string]any{
		"resolution": "rebooted worker",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alert = body["data"].(map[string]any)
	assert.Equal(t, "closed", alert["status"])
	assert.NotNil(t, alert["resolved_at"])

	resp, body = at.do(t, http.MethodGet, "/api/v1/alerts?status=closed", at.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1)
}

func TestAPI_AlertNotFound(t *testing.T) {
	at := newAPITest(t)

	resp, _ := at.do(t, http.MethodPost, "/api/v1/alerts/00000000-0000-4000-8000-000000000000/ack", at.token, map[string]any{
		"comment": "x",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_NotificationFanoutAndResend(t *testing.T) {
	at := newAPITest(t)

	resp, _ := at.do(t, http.MethodPut, "/api/v1/notification-channels", at.token, map[string]any{
		"channel":      "email",
		"recipient":    "ops@example.com",
		"min_severity": "warning",
		"enabled":      true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := at.do(t, http.MethodPost, "/api/v1/alerts", at.token, map[string]any{
		"source_type": "metric",
		"alert_type":  "disk_full",
		"severity":    "critical",
		"message":     "disk at 99%",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	alertID := body["data"].(map[string]any)["id"].(string)

	resp, body = at.do(t, http.MethodGet, fmt.Sprintf("/api/v1/alerts/%s/notifications", alertID), at.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notifications := body["data"].([]any)
	require.Len(t, notifications, 1)

	n := notifications[0].(map[string]any)
	assert.Equal(t, "pending", n["status"])

	resp, _ = at.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%s/notifications/%s/resend", alertID, n["id"].(string)), at.token, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestAPI_Collectors(t *testing.T) {
	at := newAPITest(t)

	resp, body := at.do(t, http.MethodPost, "/api/v1/collectors", at.token, map[string]any{
		"name": "dc1-agent",
		"type": "agent",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	collector := body["data"].(map[string]any)
	collectorID := collector["id"].(string)
	assert.Nil(t, collector["last_seen"])

	resp, body = at.do(t, http.MethodPost, fmt.Sprintf("/api/v1/collectors/%s/heartbeat", collectorID), at.token, map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["data"].(map[string]any)["last_seen"])

	resp, _ = at.do(t, http.MethodPost, "/api/v1/collectors/00000000-0000-4000-8000-000000000000/heartbeat", at.token, map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Servers(t *testing.T) {
	at := newAPITest(t)

	resp, body := at.do(t, http.MethodPost, "/api/v1/servers", at.token, map[string]any{
		"hostname":    "web-01",
		"environment": "prod",
		"ip_address":  "10.0.0.5",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	serverID := body["data"].(map[string]any)["id"].(string)

	resp, body = at.do(t, http.MethodPost, fmt.Sprintf("/api/v1/servers/%s/health", serverID), at.token, map[string]any{
		"status":         "warning",
		"cpu_percent":    91.5,
		"memory_percent": 40.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "warning", body["data"].(map[string]any)["status"])

	resp, body = at.do(t, http.MethodGet, "/api/v1/servers?environment=prod", at.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1)

	resp, _ = at.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/servers/%s", serverID), at.token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// The document is embedded, so serving must not depend on the process
// working directory.
func TestAPI_OpenAPIDocument(t *testing.T) {
	at := newAPITest(t)

	resp, err := http.Get(at.server.URL + "/api/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-yaml", resp.Header.Get("Content-Type"))

	doc, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "openapi: 3.0.3")
}

func TestAPI_Me(t *testing.T) {
	at := newAPITest(t)

	resp, body := at.do(t, http.MethodGet, "/api/v1/auth/me", at.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body["data"].(map[string]any)["username"])
}
