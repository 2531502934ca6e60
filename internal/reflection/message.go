package reflection

import "github.com/wolfman30/reflection-coach/internal/llm"

// Message is one transcript entry: {role, content}. Role alternation is not
// enforced here.
type Message = llm.Message

const (
	RoleSystem    = llm.RoleSystem
	RoleUser      = llm.RoleUser
	RoleAssistant = llm.RoleAssistant
)

// ValidRole reports whether role is one the oracle adapters accept.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Observer receives turn-level signals for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveTurn(stage string, uncertaintyOverride, recovered bool)
	ObserveFallback(component string)
}

type noopObserver struct{}

func (noopObserver) ObserveTurn(string, bool, bool) {}
func (noopObserver) ObserveFallback(string)         {}
