//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
)

type staffInfo struct {
	ID           string
	AccessToken  string
	RefreshToken string
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// seededCredentials returns the account created with `migrator -command seed-staff`.
func seededCredentials(t *testing.T) (string, string) {
	t.Helper()
	email := os.Getenv("INTEGRATION_STAFF_EMAIL")
	password := os.Getenv("INTEGRATION_STAFF_PASSWORD")
	if email == "" || password == "" {
		t.Skip("INTEGRATION_STAFF_EMAIL and INTEGRATION_STAFF_PASSWORD not set")
	}
	return email, password
}

func loginStaff(t *testing.T, baseURL, email, password string) staffInfo {
	t.Helper()

	resp := makeAuthenticatedRequest(t, http.MethodPost, fmt.Sprintf("%s/v1/auth/login", baseURL), "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login response status: %d", resp.StatusCode)
	}

	var out struct {
		StaffID      string `json:"staff_id"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatalf("empty access token in login response")
	}

	return staffInfo{ID: out.StaffID, AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
}

func seededStaff(t *testing.T, baseURL string) staffInfo {
	t.Helper()
	email, password := seededCredentials(t)
	return loginStaff(t, baseURL, email, password)
}

func makeAuthenticatedRequest(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}
