package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCode(t *testing.T) {
	cause := stdErrors.New("rpc down")
	err := Wrap(CodeChainFailure, cause, "查询余额失败")

	if CodeOf(err) != CodeChainFailure {
		t.Fatalf("unexpected code %s", CodeOf(err))
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if !stdErrors.Is(fmt.Errorf("outer: %w", err), New(CodeChainFailure, "")) {
		t.Fatalf("expected errors.Is to match on code")
	}
}

func TestDescribeStripsCodes(t *testing.T) {
	inner := New(CodeInvalidArgument, "amount must be positive")
	err := Wrap(CodeChainFailure, inner, "send failed")

	if got := Describe(err); got != "send failed: amount must be positive" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := Describe(stdErrors.New("plain")); got != "plain" {
		t.Fatalf("unexpected description %q", got)
	}
	if Describe(nil) != "" {
		t.Fatalf("expected empty description for nil")
	}
}

func TestAttributesFallback(t *testing.T) {
	if AttributesOf(Code("MISSING")).Severity != SeverityCritical {
		t.Fatalf("expected unknown codes to fall back to UNKNOWN attributes")
	}
	Register(Code("CUSTOM"), Attributes{Message: "custom", Severity: SeverityInfo})
	if New(Code("CUSTOM"), "").Message() != "custom" {
		t.Fatalf("expected registered default message")
	}
	if SeverityOf(New(CodeTimeout, "", WithSeverity(SeverityCritical))) != SeverityCritical {
		t.Fatalf("expected severity override")
	}
}
