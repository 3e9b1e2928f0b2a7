package arena

import "github.com/okian/arena/internal/domain/model"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDefaultRules overrides the ruleset applied when a scheduler does not
// supply one.
func WithDefaultRules(r model.Rules) Option {
	return func(e *Engine) {
		e.defaults = r
	}
}

// WithOperatorQueueSize bounds the escalation queue.
func WithOperatorQueueSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.escalations = make(chan Escalation, size)
		}
	}
}
