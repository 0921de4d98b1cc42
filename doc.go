// Package wexpr compiles small arithmetic/print expressions to WebAssembly
// modules and runs them on an embedded host.
//
// # Overview
//
// An expression tree of integer literals, additions, multiplications and
// print side effects is lowered to a module that imports one host function
// (env.log_i32) and exports "calculate" and "main". The host validates the
// module, links the import, instantiates it and calls "main".
//
// # Basic Usage
//
//	mod, _ := compiler.Compile(ast.Sample())
//
//	h, _ := host.New()
//	defer h.Close()
//
//	reg := hostfunc.NewRegistry().
//	    MustRegister(hostfunc.Log("env", "log_i32", os.Stdout)) // prints 20
//
//	result := h.Run(ctx, mod.Bytes(), reg)
//	fmt.Println(result.Value) // 50
//
// # Packages
//
//	ast       expression tree, parser, YAML/JSON tree documents
//	codegen   tree → module descriptor
//	wasm      descriptor model, assembler/validator, binary and text forms
//	compiler  codegen + assembly, single and parallel
//	hostfunc  import bindings
//	host      load → link → instantiate → invoke on wazero
//
// See the [compiler], [host] and [hostfunc] packages for detailed API
// documentation.
package wexpr
