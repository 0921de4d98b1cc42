package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/caffeineduck/wexpr/hostfunc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Instance is an instantiated module. Each instance owns its runtime, so
// memories, locals and host modules are never shared between instances.
// Calls on one instance are serialized; a concurrent call fails with
// ErrInstanceBusy instead of waiting.
type Instance struct {
	host    *Host
	linked  *Linked
	runtime wazero.Runtime
	module  api.Module

	mu     sync.Mutex
	execMu sync.Mutex
	closed bool
}

// Instantiate creates a fresh instance (Linked → Instantiated). No start
// function is run; nothing executes until Call.
func (l *Linked) Instantiate(ctx context.Context) (*Instance, error) {
	h := l.module.host
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	rt := wazero.NewRuntimeWithConfig(ctx, h.rtConfig)

	inst := &Instance{host: h, linked: l, runtime: rt}
	if err := h.track(inst); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	if err := inst.instantiate(ctx); err != nil {
		inst.Close(ctx)
		return nil, err
	}

	h.logger.Debug("module instantiated",
		zap.String("stage", StateInstantiated.String()),
		zap.String("digest", l.module.digest[:12]),
	)
	return inst, nil
}

func (inst *Instance) instantiate(ctx context.Context) error {
	byModule := make(map[string][]hostfunc.Binding)
	for _, b := range inst.linked.bindings {
		byModule[b.Module] = append(byModule[b.Module], b)
	}
	names := make([]string, 0, len(byModule))
	for name := range byModule {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		builder := inst.runtime.NewHostModuleBuilder(name)
		for _, b := range byModule[name] {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(adapt(b.Fn), b.Params, b.Results).
				Export(b.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("%w: host module %q: %v", ErrInstantiation, name, err)
		}
	}

	compiled, err := inst.runtime.CompileModule(ctx, inst.linked.module.bin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstantiation, err)
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()

	mod, err := inst.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstantiation, err)
	}
	inst.module = mod
	return nil
}

// adapt turns a binding into a wazero host function. wazero recovers the
// panic and reports it from the guest call as an error.
func adapt(fn hostfunc.Func) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		if err := fn(ctx, stack); err != nil {
			panic(err)
		}
	}
}

// Call invokes the exported function name, which must take no parameters
// and return one i32 (Instantiated → Invoked → Returned or Trapped).
func (inst *Instance) Call(ctx context.Context, name string) (int32, error) {
	if !inst.execMu.TryLock() {
		return 0, ErrInstanceBusy
	}
	defer inst.execMu.Unlock()

	inst.mu.Lock()
	if inst.closed {
		inst.mu.Unlock()
		return 0, ErrClosed
	}
	mod := inst.module
	inst.mu.Unlock()

	fn := mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("%w: %q", ErrExportNotFound, name)
	}
	def := fn.Definition()
	if len(def.ParamTypes()) != 0 || !sameTypes(def.ResultTypes(), []api.ValueType{api.ValueTypeI32}) {
		return 0, fmt.Errorf("%w: export %q is %s, want () -> (i32)",
			ErrSignatureMismatch, name, hostfunc.Signature(def.ParamTypes(), def.ResultTypes()))
	}

	inst.host.logger.Debug("invoking export",
		zap.String("stage", StateInvoked.String()),
		zap.String("export", name),
	)

	results, err := fn.Call(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: timeout: %v", ErrTrapped, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrTrapped, err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%w: export %q returned %d values", ErrTrapped, name, len(results))
	}
	return api.DecodeI32(results[0]), nil
}

// Close releases the instance and its runtime.
func (inst *Instance) Close(ctx context.Context) error {
	inst.mu.Lock()
	if inst.closed {
		inst.mu.Unlock()
		return nil
	}
	inst.closed = true
	inst.mu.Unlock()

	inst.host.untrack(inst)
	return inst.runtime.Close(ctx)
}
