package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusAccepted, map[string]string{"status": "processing"})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["status"] != "processing" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		message     string
		wantDetails bool
	}{
		{"validation keeps message and field", pkgerrors.Validation("title", "title must be at least 3 characters"), http.StatusBadRequest, "title must be at least 3 characters", true},
		{"ownership", pkgerrors.Forbidden("Unauthorized"), http.StatusForbidden, "Unauthorized", false},
		{"upstream", pkgerrors.Upstream(errors.New("stripe down"), "create checkout session"), http.StatusServiceUnavailable, "dependency unavailable", false},
		{"untyped stays private", errors.New("boom"), http.StatusInternalServerError, "internal server error", false},
		{"nil", nil, http.StatusInternalServerError, "internal server error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
			body := decodeError(t, rec)
			if body.Message != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, body.Message)
			}
			if (body.Details != nil) != tc.wantDetails {
				t.Fatalf("details presence mismatch: %v", body.Details)
			}
		})
	}
}

func TestWriteErrorLogsServerFailures(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.Persistence(errors.New("disk full"), "insert order"))

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "disk full") {
		t.Fatalf("expected error log with cause, got %s", out)
	}
	if !strings.Contains(out, `"status":500`) {
		t.Fatalf("expected status field, got %s", out)
	}
}
