package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type infoOnly struct{ caps []Capability }

func (p infoOnly) Info() Info { return Info{ID: "bare", Capabilities: p.caps} }

type fullPlugin struct{ infoOnly }

func (fullPlugin) SendToken(context.Context, SendRequest) (any, error) { return "0xabc", nil }
func (fullPlugin) GetBalance(context.Context, string) (string, error)  { return "1.0", nil }
func (fullPlugin) Interpret(context.Context, string) (Interpretation, error) {
	return Interpretation{}, nil
}

func TestNegotiateGrantsImplementedCapabilities(t *testing.T) {
	g, err := Negotiate(fullPlugin{}, IsolationPolicy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.List(); len(got) != 3 {
		t.Fatalf("expected 3 grants, got %v", got)
	}
}

func TestNegotiateRespectsPolicy(t *testing.T) {
	policy := IsolationPolicy{DeniedCapabilities: []Capability{CapabilitySendToken}}
	g, err := Negotiate(fullPlugin{}, policy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Has(CapabilitySendToken) {
		t.Fatalf("send_token should be denied")
	}
	if !g.Has(CapabilityGetBalance) {
		t.Fatalf("get_balance should be granted")
	}

	allowOnly := IsolationPolicy{AllowedCapabilities: []Capability{CapabilityGetBalance}}
	g, _ = Negotiate(fullPlugin{}, allowOnly)
	if g.Has(CapabilityInterpret) || !g.Has(CapabilityGetBalance) {
		t.Fatalf("unexpected grants %v", g.List())
	}
}

func TestNegotiateWithoutCapabilities(t *testing.T) {
	g, err := Negotiate(infoOnly{}, IsolationPolicy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.List()) != 0 {
		t.Fatalf("expected no grants, got %v", g.List())
	}
}

func TestNegotiateDeclaredButMissing(t *testing.T) {
	_, err := Negotiate(infoOnly{caps: []Capability{CapabilitySendToken}}, IsolationPolicy{})
	if err == nil {
		t.Fatalf("expected error for declared but unimplemented capability")
	}
}

func TestFromSymbolShapes(t *testing.T) {
	var value Plugin = fullPlugin{}
	shapes := []any{
		value,
		&value,
		func() Plugin { return fullPlugin{} },
		func() (Plugin, error) { return fullPlugin{}, nil },
	}
	for i, s := range shapes {
		p, err := FromSymbol(s)
		if err != nil || p == nil {
			t.Fatalf("shape %d: unexpected result %v %v", i, p, err)
		}
	}
	if _, err := FromSymbol(42); err == nil {
		t.Fatalf("expected error for unsupported symbol")
	}
	if _, err := FromSymbol(func() Plugin { return nil }); err == nil {
		t.Fatalf("expected error for nil constructor result")
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.yaml")
	doc := "policy:\n  allowedCapabilities: [send_token, get_balance]\n  deniedCapabilities: [interpret]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !policy.Allows(CapabilitySendToken) || policy.Allows(CapabilityInterpret) {
		t.Fatalf("unexpected policy %+v", policy)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("policy:\n  allowedCapabilities: [send_token]\n  deniedCapabilities: [send_token]\n"), 0o600)
	if _, err := LoadPolicy(bad); err == nil {
		t.Fatalf("expected conflict error")
	}

	empty, err := LoadPolicy("")
	if err != nil || !empty.Allows(CapabilityInterpret) {
		t.Fatalf("empty path should allow everything")
	}
}
