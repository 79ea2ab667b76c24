package pipeline

import "context"

// Decision is the answer to a critical stage failure.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionAbort    Decision = "abort"
)

// Decider is consulted when a critical stage fails.
type Decider interface {
	Decide(ctx context.Context, stage string, err error) Decision
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, stage string, err error) Decision

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, stage string, err error) Decision {
	return f(ctx, stage, err)
}

// FlagDecider answers every critical failure the same way.
func FlagDecider(continueOnFailure bool) Decider {
	return DeciderFunc(func(context.Context, string, error) Decision {
		if continueOnFailure {
			return DecisionContinue
		}
		return DecisionAbort
	})
}
