//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/paper-builder/pkg/http/ws"
)

func TestWebSocketDraftUpdates(t *testing.T) {
	baseHTTP := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	baseWS := envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/drafts")

	staff := seededStaff(t, baseHTTP)
	draftID := createDraft(t, baseHTTP, staff.AccessToken)

	conn := dialDraftWS(t, baseWS, staff.AccessToken, draftID)
	defer conn.Close()

	sendPing(t, conn)
	waitForType(t, conn, wsmsg.TypePong, 5*time.Second)

	resp := makeAuthenticatedRequest(t, http.MethodPatch, fmt.Sprintf("%s/v1/drafts/%s/header", baseHTTP, draftID), staff.AccessToken, map[string]interface{}{
		"paperName": "Renamed over the socket",
		"info":      map[string]string{"class": integrationClass(), "subject": integrationSubject()},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("header update failed: %d", resp.StatusCode)
	}

	msg := waitForType(t, conn, wsmsg.TypeDraftUpdated, 5*time.Second)
	var payload wsmsg.DraftUpdatedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode draft_updated payload: %v", err)
	}
	if payload.DraftID != draftID {
		t.Fatalf("update for wrong draft: %s", payload.DraftID)
	}
	if payload.Selection != "closed" {
		t.Fatalf("expected closed selection, got %s", payload.Selection)
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	baseWS := envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/drafts")

	_, resp, err := websocket.DefaultDialer.Dial(baseWS, nil)
	if err == nil {
		t.Fatal("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %v", resp)
	}
}

func dialDraftWS(t *testing.T, wsBase, token, draftID string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(wsBase)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("draft", draftID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn
}

func sendPing(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(wsmsg.Message{Type: wsmsg.TypePing, RequestID: "ping-1"}); err != nil {
		t.Fatalf("failed to send ping: %v", err)
	}
}

func waitForType(t *testing.T, conn *websocket.Conn, msgType string, timeout time.Duration) wsmsg.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(timeout))
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read ws message failed: %v", err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("timeout waiting for %s", msgType)
	return wsmsg.Message{}
}
