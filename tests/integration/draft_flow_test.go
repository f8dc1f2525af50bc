//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func integrationClass() string   { return envOrDefault("INTEGRATION_CLASS", "Class 9") }
func integrationSubject() string { return envOrDefault("INTEGRATION_SUBJECT", "Physics") }

func createDraft(t *testing.T, baseURL, token string) string {
	t.Helper()

	resp := makeAuthenticatedRequest(t, http.MethodPost, fmt.Sprintf("%s/v1/drafts", baseURL), token, map[string]interface{}{
		"paperName": "Integration paper",
		"info":      map[string]string{"class": integrationClass(), "subject": integrationSubject()},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create draft status: %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &out)
	if out.ID == "" {
		t.Fatal("draft id is empty")
	}
	return out.ID
}

type candidateView struct {
	TempID   string `json:"tempId"`
	Selected bool   `json:"selected"`
}

type selectionView struct {
	State      string          `json:"state"`
	Required   int             `json:"required"`
	Selected   int             `json:"selectedCount"`
	Candidates []candidateView `json:"candidates"`
	Notice     *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"notice"`
}

func TestDraftBuildAndSave(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	chapters := strings.Split(envOrDefault("INTEGRATION_CHAPTERS", "Motion"), ",")
	staff := seededStaff(t, baseURL)
	draftID := createDraft(t, baseURL, staff.AccessToken)
	draftURL := fmt.Sprintf("%s/v1/drafts/%s", baseURL, draftID)

	resp := makeAuthenticatedRequest(t, http.MethodPost, draftURL+"/selection", staff.AccessToken, map[string]interface{}{
		"filters":  map[string]interface{}{"category": "short", "chapters": chapters},
		"required": 2,
	})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("open selection failed: %d", resp.StatusCode)
	}
	var sel selectionView
	decodeJSON(t, resp, &sel)
	resp.Body.Close()
	if sel.Notice != nil || len(sel.Candidates) < 2 {
		t.Skipf("question bank has too few short questions for %v", chapters)
	}

	for _, c := range sel.Candidates[:2] {
		resp = makeAuthenticatedRequest(t, http.MethodPost, draftURL+"/selection/toggle", staff.AccessToken, map[string]string{"tempId": c.TempID})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("toggle failed: %d", resp.StatusCode)
		}
	}

	resp = makeAuthenticatedRequest(t, http.MethodPost, draftURL+"/selection/commit", staff.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("commit failed: %d", resp.StatusCode)
	}
	var committed struct {
		Totals struct {
			Grand int `json:"grandTotal"`
		} `json:"totals"`
	}
	decodeJSON(t, resp, &committed)
	resp.Body.Close()
	if committed.Totals.Grand != 4 {
		t.Fatalf("expected 4 marks for two short questions, got %d", committed.Totals.Grand)
	}

	resp = makeAuthenticatedRequest(t, http.MethodPost, draftURL+"/save", staff.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("save failed: %d", resp.StatusCode)
	}
	var saved struct {
		PaperID string `json:"paperId"`
	}
	decodeJSON(t, resp, &saved)
	resp.Body.Close()
	if saved.PaperID == "" {
		t.Fatal("saved draft has no paper id")
	}

	resp = makeAuthenticatedRequest(t, http.MethodGet, fmt.Sprintf("%s/v1/papers/%s", baseURL, saved.PaperID), staff.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get saved paper failed: %d", resp.StatusCode)
	}

	resp2 := makeAuthenticatedRequest(t, http.MethodDelete, fmt.Sprintf("%s/v1/papers/%s", baseURL, saved.PaperID), staff.AccessToken, nil)
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNoContent {
		t.Fatalf("delete paper failed: %d", resp2.StatusCode)
	}
}
