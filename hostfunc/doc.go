// Package hostfunc provides host implementations for module imports.
//
// A compiled module declares the host functions it needs as imports, each
// identified by a module name, a function name and a signature. A
// [Registry] maps those pairs to Go callbacks ([Binding]); the host linker
// matches every import against the registry before instantiation.
//
// # Registry
//
//	registry := hostfunc.NewRegistry()
//	registry.Register(hostfunc.Log("env", "log_i32", os.Stdout))
//
// # Custom Bindings
//
// [I32Sink] adapts a plain Go function to the (i32) -> () log signature:
//
//	registry.Register(hostfunc.I32Sink("env", "log_i32", func(ctx context.Context, v int32) error {
//	    logger.Info("guest value", zap.Int32("value", v))
//	    return nil
//	}))
//
// Returning an error from a binding traps the running module; the host
// reports it instead of returning a value.
//
// Callbacks run synchronously on the goroutine that invoked the module and
// complete before the next guest instruction executes.
package hostfunc
