package plugin

import (
	"fmt"
	"slices"
)

// Grants records which capabilities a loaded plugin may be invoked for.
type Grants struct {
	SendToken  TokenSender
	GetBalance BalanceReader
	Interpret  Interpreter
}

// Has reports whether the capability was granted.
func (g Grants) Has(c Capability) bool {
	switch c {
	case CapabilitySendToken:
		return g.SendToken != nil
	case CapabilityGetBalance:
		return g.GetBalance != nil
	case CapabilityInterpret:
		return g.Interpret != nil
	default:
		return false
	}
}

// List returns the granted capabilities in a stable order.
func (g Grants) List() []Capability {
	var out []Capability
	for _, c := range []Capability{CapabilitySendToken, CapabilityGetBalance, CapabilityInterpret} {
		if g.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Allows reports whether the policy permits the capability. An empty
// allow list permits everything not denied.
func (p IsolationPolicy) Allows(c Capability) bool {
	if slices.Contains(p.DeniedCapabilities, c) {
		return false
	}
	if len(p.AllowedCapabilities) == 0 {
		return true
	}
	return slices.Contains(p.AllowedCapabilities, c)
}

// Negotiate probes the plugin for each optional interface and keeps those the
// policy allows. A plugin that declares capabilities in Info must implement
// the matching interface; declared-but-missing capabilities are reported.
func Negotiate(p Plugin, policy IsolationPolicy) (Grants, error) {
	if p == nil {
		return Grants{}, fmt.Errorf("plugin is nil")
	}
	var g Grants
	if s, ok := p.(TokenSender); ok && policy.Allows(CapabilitySendToken) {
		g.SendToken = s
	}
	if b, ok := p.(BalanceReader); ok && policy.Allows(CapabilityGetBalance) {
		g.GetBalance = b
	}
	if i, ok := p.(Interpreter); ok && policy.Allows(CapabilityInterpret) {
		g.Interpret = i
	}
	for _, c := range p.Info().Capabilities {
		if !policy.Allows(c) {
			continue
		}
		if !implements(p, c) {
			return g, fmt.Errorf("plugin declares capability %s but does not implement it", c)
		}
	}
	return g, nil
}

func implements(p Plugin, c Capability) bool {
	switch c {
	case CapabilitySendToken:
		_, ok := p.(TokenSender)
		return ok
	case CapabilityGetBalance:
		_, ok := p.(BalanceReader)
		return ok
	case CapabilityInterpret:
		_, ok := p.(Interpreter)
		return ok
	default:
		return false
	}
}
