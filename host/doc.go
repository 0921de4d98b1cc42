// Package host loads, links and executes compiled expression modules on
// wazero.
//
// # Overview
//
// A module moves through Unloaded → Validated → Linked → Instantiated →
// Invoked and ends Returned or Trapped. Each transition is a separate call
// and a hard gate: a failure returns a stage sentinel (ErrInvalidModule,
// ErrUnresolvedImport, ErrSignatureMismatch, ErrInstantiation,
// ErrExportNotFound, ErrTrapped) and the next stage never runs.
//
// # Basic Usage
//
//	h, err := host.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	reg := hostfunc.NewRegistry().
//	    MustRegister(hostfunc.Log("env", "log_i32", os.Stdout))
//
//	result := h.Run(ctx, bin, reg)
//	fmt.Println(result.Value, result.State)
//
// # Stages
//
// The same pipeline, one step at a time:
//
//	mod, err := h.Load(ctx, bin)        // Validated
//	linked, err := mod.Link(reg)        // Linked
//	inst, err := linked.Instantiate(ctx) // Instantiated
//	v, err := inst.Call(ctx, "main")    // Returned or Trapped
//
// # Concurrency
//
// Host, Module and Linked are safe for concurrent use. An Instance runs one
// call at a time; a second concurrent Call returns ErrInstanceBusy. Use one
// instance per caller for parallel execution.
package host
