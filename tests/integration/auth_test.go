//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestLoginFlow(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	staff := seededStaff(t, baseURL)

	if staff.ID == "" {
		t.Fatal("staff ID is empty")
	}
	if staff.RefreshToken == "" {
		t.Fatal("refresh token is empty")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	email, _ := seededCredentials(t)

	resp := makeAuthenticatedRequest(t, http.MethodPost, fmt.Sprintf("%s/v1/auth/login", baseURL), "", map[string]string{
		"email":    email,
		"password": "definitely-wrong",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errResp map[string]interface{}
	decodeJSON(t, resp, &errResp)
	if errResp["error"] != "login_failed" {
		t.Fatalf("expected login_failed, got %v", errResp["error"])
	}
}

func TestTokenRefresh(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	staff := seededStaff(t, baseURL)

	resp := makeAuthenticatedRequest(t, http.MethodPost, fmt.Sprintf("%s/v1/auth/refresh", baseURL), "", map[string]string{
		"refresh_token": staff.RefreshToken,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected refresh response status: %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	decodeJSON(t, resp, &out)

	if out.AccessToken == "" {
		t.Fatal("access token is empty")
	}
	if out.AccessToken == staff.AccessToken {
		t.Fatal("new access token should be different from old one")
	}
}
