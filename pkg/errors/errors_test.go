package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", detailsOK: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestWithReasonMergesDetails(t *testing.T) {
	err := New(CodeConflict, "coupon exhausted").
		WithDetails(map[string]any{"code": "SAVE20"}).
		WithReason(ReasonExhaustedCoupon)

	if got := ReasonOf(err); got != ReasonExhaustedCoupon {
		t.Fatalf("expected reason %q got %q", ReasonExhaustedCoupon, got)
	}
	details, ok := err.Details().(map[string]any)
	if !ok || details["code"] != "SAVE20" {
		t.Fatalf("expected existing details to be preserved, got %#v", err.Details())
	}

	wrapped := fmt.Errorf("checkout: %w", err)
	if got := ReasonOf(wrapped); got != ReasonExhaustedCoupon {
		t.Fatalf("expected reason through wrap, got %q", got)
	}
	if ReasonOf(stdErrors.New("plain")) != "" {
		t.Fatal("plain errors carry no reason")
	}
}

func TestCodeOfAndRetryable(t *testing.T) {
	wrapped := fmt.Errorf("release escrow: %w", New(CodeStateConflict, "already settled"))
	if got := CodeOf(wrapped); got != CodeStateConflict {
		t.Fatalf("expected state conflict through wrap, got %s", got)
	}
	if IsRetryable(wrapped) {
		t.Fatal("state conflicts are final")
	}
	if got := CodeOf(stdErrors.New("socket closed")); got != CodeInternal {
		t.Fatalf("untyped errors are internal, got %s", got)
	}
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("redis down"), "idempotency")) {
		t.Fatal("dependency failures are retryable")
	}
}

func TestDumpCarriesPostgresDiagnostics(t *testing.T) {
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", &pq.Error{
		Code:       "23505",
		Constraint: "ux_reviews_user_service",
		Table:      "reviews",
		Message:    "duplicate key value violates unique constraint",
	}), "review already exists")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "ux_reviews_user_service" || d.PGTable != "reviews" {
		t.Fatalf("unexpected pg diagnostics %#v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}

	if _, ok := Postgres(stdErrors.New("plain")); ok {
		t.Fatal("plain errors carry no diagnostics")
	}
}
