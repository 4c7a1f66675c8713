package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/nextcart/storefront-backend/pkg/errors"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["hello"] != "world" {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestWriteErrorMapsTypedCodes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation surfaces message",
			err:        pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1"),
			wantStatus: 400,
			wantCode:   "BAD_REQUEST",
			wantMsg:    "quantity must be at least 1",
		},
		{
			name:       "not found",
			err:        pkgerrors.New(pkgerrors.CodeNotFound, "order not found"),
			wantStatus: 404,
			wantCode:   "NOT_FOUND",
			wantMsg:    "order not found",
		},
		{
			name:       "conflict",
			err:        pkgerrors.New(pkgerrors.CodeConflict, "payment declined"),
			wantStatus: 409,
			wantCode:   "CONFLICT",
			wantMsg:    "payment declined",
		},
		{
			name:       "internal hides cause",
			err:        pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("pq: connection reset"), "load order"),
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "internal server error",
		},
		{
			name:       "untyped becomes internal",
			err:        errors.New("boom"),
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var envelope ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if envelope.Error.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, envelope.Error.Code)
			}
			if envelope.Error.Message != tc.wantMsg {
				t.Fatalf("expected message %q, got %q", tc.wantMsg, envelope.Error.Message)
			}
		})
	}
}

func TestWriteErrorIncludesAllowedDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"quantity": "must be at least 1"})
	WriteError(context.Background(), nil, rec, err)

	var envelope struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Details["quantity"] != "must be at least 1" {
		t.Fatalf("expected details to pass through, got %v", envelope.Error.Details)
	}
}
