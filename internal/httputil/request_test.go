package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloudsyncpro/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestParseOptionalID(t *testing.T) {
	tests := []struct {
		raw     string
		want    *int64
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "  ", want: nil},
		{raw: "null", want: nil},
		{raw: "undefined", want: nil},
		{raw: "7", want: ptr(7)},
		{raw: " 12 ", want: ptr(12)},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOptionalID(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionalID_UnmarshalJSON(t *testing.T) {
	type body struct {
		ParentID OptionalID `json:"parent_folder_id"`
	}

	tests := []struct {
		name    string
		json    string
		want    *int64
		wantErr bool
	}{
		{name: "absent", json: `{}`},
		{name: "null", json: `{"parent_folder_id": null}`},
		{name: "empty string", json: `{"parent_folder_id": ""}`},
		{name: "null string", json: `{"parent_folder_id": "null"}`},
		{name: "number", json: `{"parent_folder_id": 4}`, want: ptr(4)},
		{name: "numeric string", json: `{"parent_folder_id": "9"}`, want: ptr(9)},
		{name: "zero", json: `{"parent_folder_id": 0}`, wantErr: true},
		{name: "garbage", json: `{"parent_folder_id": "abc"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b body
			err := json.Unmarshal([]byte(tt.json), &b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.ParentID.Value)
		})
	}
}

func TestParseID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var gotErr error
	mux.HandleFunc("GET /folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParseID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/folders/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/folders/abc", nil))
	assert.ErrorIs(t, gotErr, domain.ErrValidation)
}

func TestParseJSON(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Docs"}`))
	require.NoError(t, ParseJSON(w, r, &dest))
	assert.Equal(t, "Docs", dest.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.ErrorIs(t, ParseJSON(w, r, &dest), domain.ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.NoError(t, ParseJSON(w, r, &dest))
}

func TestRespondError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	RespondErrorWithExtras(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", map[string]interface{}{
		"errors": []map[string]string{{"field": "name_folder", "message": "cannot be blank"}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "validation failed", body["message"])
	assert.Equal(t, float64(400), body["status"])
	assert.Len(t, body["errors"], 1)
}
