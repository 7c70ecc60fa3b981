package engine

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	"github.com/rhuss/funcall/pkg/tools"
)

// dispatch invokes calls and returns one outcome per call, in request
// order.
func (e *Engine) dispatch(ctx context.Context, calls []tools.ToolCall) []tools.Outcome {
	if len(calls) == 0 {
		return nil
	}

	invoke := func(call *tools.ToolCall) tools.Outcome {
		if err := ctx.Err(); err != nil {
			return tools.Outcome{
				CallID: call.ID,
				Name:   call.Name,
				Error:  "cancelled: " + err.Error(),
			}
		}
		return e.invoker.Invoke(ctx, *call)
	}

	if !e.cfg.ParallelInvocations || len(calls) == 1 {
		outcomes := make([]tools.Outcome, len(calls))
		for i := range calls {
			outcomes[i] = invoke(&calls[i])
		}
		return outcomes
	}

	mapper := iter.Mapper[tools.ToolCall, tools.Outcome]{MaxGoroutines: e.cfg.maxParallel()}
	return mapper.Map(calls, invoke)
}
