package host

import (
	"context"
	"errors"
	"time"

	"github.com/caffeineduck/wexpr/hostfunc"
	"go.uber.org/zap"
)

// Result holds the outcome of a Run.
type Result struct {
	Value    int32
	State    State // last state reached; Invoked is never final
	Duration time.Duration
	Error    error
}

// Run loads, links, instantiates and invokes bin in one step. Log output
// goes wherever the bindings in registry send it. A failure at any stage is
// reported in Result.Error and the stages after it are not attempted.
func (h *Host) Run(ctx context.Context, bin []byte, registry *hostfunc.Registry, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	result := Result{State: StateUnloaded}
	finish := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		if err != nil {
			h.logger.Debug("run failed",
				zap.String("state", result.State.String()),
				zap.Error(err),
			)
		}
		return result
	}

	mod, err := h.Load(ctx, bin)
	if err != nil {
		return finish(err)
	}
	result.State = StateValidated

	linked, err := mod.Link(registry)
	if err != nil {
		return finish(err)
	}
	result.State = StateLinked

	inst, err := linked.Instantiate(ctx)
	if err != nil {
		return finish(err)
	}
	defer inst.Close(context.Background())
	result.State = StateInstantiated

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	v, err := inst.Call(ctx, cfg.entry)
	if err != nil {
		if errors.Is(err, ErrTrapped) {
			result.State = StateTrapped
		}
		return finish(err)
	}
	result.Value = v
	result.State = StateReturned

	h.logger.Debug("run returned",
		zap.Int32("value", v),
		zap.Duration("duration", time.Since(start)),
	)
	return finish(nil)
}
