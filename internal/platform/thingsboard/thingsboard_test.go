package thingsboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sensevend-next/internal/platform"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(Config{
		BaseURL:         server.URL,
		Username:        "api@example.com",
		Password:        "secret",
		DeviceProfileID: "profile-1",
		Timeout:         3 * time.Second,
		TokenTTL:        50 * time.Minute,
	})
	return server, client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestCreateDevice(t *testing.T) {
	var loginCount int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			atomic.AddInt64(&loginCount, 1)
			writeJSON(t, w, map[string]string{"token": "tok-1"})
		case "/api/device-with-credentials":
			if got := r.Header.Get("X-Authorization"); got != "Bearer tok-1" {
				t.Errorf("auth header = %q, want Bearer tok-1", got)
			}
			var body deviceWithCredentialsRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if body.Device.Name != "sensor-01" {
				t.Errorf("device name = %q", body.Device.Name)
			}
			if body.Device.DeviceProfileID == nil || body.Device.DeviceProfileID.EntityType != "DEVICE_PROFILE" {
				t.Errorf("device profile id = %+v", body.Device.DeviceProfileID)
			}
			if body.Credentials.CredentialsType != "MQTT_BASIC" {
				t.Errorf("credentials type = %q", body.Credentials.CredentialsType)
			}
			var cred map[string]string
			if err := json.Unmarshal([]byte(body.Credentials.CredentialsValue), &cred); err != nil {
				t.Fatalf("credentials value not json: %v", err)
			}
			if cred["userName"] != "mqtt-user" || cred["password"] != "mqtt-pass" {
				t.Errorf("credentials value = %v", cred)
			}
			writeJSON(t, w, map[string]any{"id": map[string]string{"id": "dev-remote-1", "entityType": "DEVICE"}})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	remoteID, err := client.CreateDevice(context.Background(), "sensor-01", platform.CredentialInput{
		Username: "mqtt-user",
		Password: "mqtt-pass",
	})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if remoteID != "dev-remote-1" {
		t.Errorf("remote id = %q, want dev-remote-1", remoteID)
	}
	if n := atomic.LoadInt64(&loginCount); n != 1 {
		t.Errorf("login count = %d, want 1", n)
	}
}

func TestTokenReuseAcrossRequests(t *testing.T) {
	var loginCount int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/auth/login":
			atomic.AddInt64(&loginCount, 1)
			writeJSON(t, w, map[string]string{"token": "tok-1"})
		case strings.HasPrefix(r.URL.Path, "/api/customer/") && strings.HasSuffix(r.URL.Path, "/deviceInfos"):
			writeJSON(t, w, map[string]any{"data": []any{}, "totalElements": 0, "hasNext": false})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.FetchDevices(ctx, "tenant-1"); err != nil {
			t.Fatalf("FetchDevices #%d: %v", i, err)
		}
	}
	if n := atomic.LoadInt64(&loginCount); n != 1 {
		t.Errorf("login count = %d, want 1", n)
	}
}

func TestTokenInvalidatedOnUnauthorized(t *testing.T) {
	var loginCount int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/auth/login":
			atomic.AddInt64(&loginCount, 1)
			writeJSON(t, w, map[string]string{"token": "tok"})
		case strings.HasPrefix(r.URL.Path, "/api/customer/"):
			if atomic.LoadInt64(&loginCount) < 2 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(t, w, map[string]string{"title": "Acme"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	if _, err := client.FetchTenantTitle(ctx, "tenant-1"); err == nil {
		t.Fatal("expected error on 401")
	}
	title, err := client.FetchTenantTitle(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("FetchTenantTitle after relogin: %v", err)
	}
	if title != "Acme" {
		t.Errorf("title = %q, want Acme", title)
	}
	if n := atomic.LoadInt64(&loginCount); n != 2 {
		t.Errorf("login count = %d, want 2", n)
	}
}

func TestFetchDevices(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/auth/login":
			writeJSON(t, w, map[string]string{"token": "tok"})
		case r.URL.Path == "/api/customer/tenant-1/deviceInfos":
			if got := r.URL.Query().Get("pageSize"); got != "1000" {
				t.Errorf("pageSize = %q", got)
			}
			writeJSON(t, w, map[string]any{
				"data": []map[string]any{
					{
						"id":          map[string]string{"id": "dev-a", "entityType": "DEVICE"},
						"name":        "sensor-a",
						"label":       "warehouse",
						"type":        "default",
						"active":      true,
						"createdTime": 1718000000000,
					},
				},
				"totalElements": 1,
				"hasNext":       false,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	devices, err := client.FetchDevices(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("FetchDevices: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("devices len = %d, want 1", len(devices))
	}
	d := devices[0]
	if d.RemoteID != "dev-a" || d.Name != "sensor-a" || !d.Active {
		t.Errorf("device = %+v", d)
	}
}

func TestUpdateCredentials(t *testing.T) {
	var updated bool
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/auth/login":
			writeJSON(t, w, map[string]string{"token": "tok"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/device/dev-a/credentials":
			writeJSON(t, w, map[string]any{
				"id":               map[string]string{"id": "cred-1"},
				"deviceId":         map[string]string{"id": "dev-a", "entityType": "DEVICE"},
				"credentialsType":  "MQTT_BASIC",
				"credentialsValue": `{"clientId":"","userName":"old","password":"old"}`,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/device/credentials":
			var body credentialsBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if body.ID.ID != "cred-1" {
				t.Errorf("credentials id = %q, want cred-1", body.ID.ID)
			}
			if !strings.Contains(body.CredentialsValue, `"userName":"new-user"`) {
				t.Errorf("credentials value = %q", body.CredentialsValue)
			}
			updated = true
			writeJSON(t, w, map[string]string{"status": "ok"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	err := client.UpdateCredentials(context.Background(), "dev-a", platform.CredentialInput{
		Username: "new-user",
		Password: "new-pass",
	})
	if err != nil {
		t.Fatalf("UpdateCredentials: %v", err)
	}
	if !updated {
		t.Error("credentials update was not submitted")
	}
}

func TestLoginFailure(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := client.CreateDevice(context.Background(), "sensor-01", platform.CredentialInput{})
	if err == nil {
		t.Fatal("expected auth error")
	}
	if !strings.Contains(err.Error(), "auth failed") {
		t.Errorf("error = %v, want auth failed", err)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(nil); err == nil {
		t.Error("nil config should fail")
	}
	if err := ValidateConfig(&Config{BaseURL: "https://tb.example.com", Username: "u"}); err == nil {
		t.Error("missing password should fail")
	}
	if err := ValidateConfig(&Config{BaseURL: "https://tb.example.com", Username: "u", Password: "p"}); err != nil {
		t.Errorf("valid config failed: %v", err)
	}
}
