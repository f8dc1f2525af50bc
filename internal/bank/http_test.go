package bank

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolvePreview(t *testing.T) {
	h := NewHTTPHandler(newTestService(&countingSource{payload: []byte(sampleBank)}), zerolog.Nop())

	tests := []struct {
		name   string
		body   string
		status int
		count  int
	}{
		{"loose category name", `{"class":"9","subject":"Physics","chapters":["Motion"],"category":"Short Questions"}`, http.StatusOK, 2},
		{"unknown category", `{"class":"9","subject":"Physics","chapters":["Motion"],"category":"essay"}`, http.StatusBadRequest, 0},
		{"missing chapters", `{"class":"9","subject":"Physics","category":"short"}`, http.StatusUnprocessableEntity, 0},
		{"unknown class", `{"class":"12","subject":"Physics","chapters":["Motion"],"category":"short"}`, http.StatusNotFound, 0},
		{"bad json", `{`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Resolve(rec, httptest.NewRequest(http.MethodPost, "/v1/pool/resolve", strings.NewReader(tt.body)))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var resp poolResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.count, resp.Count)
			assert.Len(t, resp.Candidates, tt.count)
		})
	}
}
