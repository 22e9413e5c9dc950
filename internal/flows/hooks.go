package flows

import (
	"context"

	"github.com/safe-chain/guard/packagemanager"
)

// Hook runs before a flow executes, allowing callers to enrich the context
// or veto the run.
type Hook interface {
	BeforeFlow(context.Context, *packagemanager.ParsedCommand) (context.Context, error)
}

type hook func(context.Context, *packagemanager.ParsedCommand) (context.Context, error)

var _ Hook = hook(nil)

func (h hook) BeforeFlow(ctx context.Context, pc *packagemanager.ParsedCommand) (context.Context, error) {
	return h(ctx, pc)
}
