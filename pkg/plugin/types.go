package plugin

import "context"

// Capability names an optional feature an interpreter plugin may provide.
type Capability string

const (
	// CapabilitySendToken transfers native or ERC20 tokens.
	CapabilitySendToken Capability = "send_token"
	// CapabilityGetBalance reads the native balance of an address.
	CapabilityGetBalance Capability = "get_balance"
	// CapabilityInterpret claims free text and turns it into a reply or a command.
	CapabilityInterpret Capability = "interpret"
)

// Info contains descriptive metadata for a plugin implementation.
type Info struct {
	ID           string
	Name         string
	Version      string
	Capabilities []Capability
}

// Plugin is the minimal shape every loaded plugin must satisfy. Capabilities
// are discovered by asserting the optional interfaces below.
type Plugin interface {
	Info() Info
}

// SendRequest describes a token transfer. An empty TokenAddress means the
// chain's native token.
type SendRequest struct {
	To           string
	Amount       string
	TokenAddress string
}

// TokenSender is implemented by plugins providing CapabilitySendToken.
type TokenSender interface {
	SendToken(ctx context.Context, req SendRequest) (any, error)
}

// BalanceReader is implemented by plugins providing CapabilityGetBalance.
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (string, error)
}

// Interpretation is what an Interpreter returns for a message it claims.
// Exactly one of Reply or Command should be set; neither means unhandled.
type Interpretation struct {
	Reply   string
	Command string
	Args    []string
}

// Interpreter is implemented by plugins providing CapabilityInterpret.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (Interpretation, error)
}
