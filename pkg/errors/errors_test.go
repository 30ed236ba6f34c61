package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeConnection, cause, "contacting payment processor")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if !HasCode(err, CodeConnection) {
		t.Fatalf("code = %v", err.Code())
	}

	dump := Dump(err)
	if dump.Code != string(CodeConnection) {
		t.Fatalf("dump code = %q", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("chain = %v", dump.Chain)
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeProcessorRejected, "This transaction couldn't be completed.")
	outer := Wrap(CodeInternal, inner, "confirming checkout")

	// As surfaces the outermost typed error.
	typed := As(outer)
	if typed == nil || typed.Code() != CodeInternal {
		t.Fatalf("typed = %v", typed)
	}
	if !HasCode(outer, CodeInternal) {
		t.Fatal("outer code lost")
	}
}

func TestMetadataFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeProcessorRejected, http.StatusUnprocessableEntity},
		{CodeConnection, http.StatusServiceUnavailable},
		{Code("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Errorf("MetadataFor(%s).HTTPStatus = %d, want %d", tc.code, got, tc.status)
		}
	}

	if !MetadataFor(CodeConnection).Retryable {
		t.Error("connection failures must be retryable")
	}
	if !MetadataFor(CodeProcessorRejected).DetailsAllowed {
		t.Error("processor rejections must expose details")
	}
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	err := New(CodeProcessorRejected, "rejected").WithDetails([]string{"10415"})
	codes, ok := err.Details().([]string)
	if !ok || len(codes) != 1 {
		t.Fatalf("details = %v", err.Details())
	}
}
