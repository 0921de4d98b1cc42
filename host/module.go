package host

import (
	"fmt"
	"sort"

	"github.com/caffeineduck/wexpr/hostfunc"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Import is an import declared by a module. Params and Results are set
// for function imports only.
type Import struct {
	Module  string
	Name    string
	Kind    ImportKind
	Params  []api.ValueType
	Results []api.ValueType
}

func (i Import) String() string {
	if i.Kind != KindFunc {
		return i.Module + "." + i.Name + " (" + i.Kind.String() + ")"
	}
	return i.Module + "." + i.Name + " " + hostfunc.Signature(i.Params, i.Results)
}

// Module is a validated binary. It is safe for concurrent use and may be
// linked any number of times.
type Module struct {
	host     *Host
	bin      []byte
	digest   string
	compiled wazero.CompiledModule
	imports  []Import
	exports  map[string]api.FunctionDefinition
}

func newModule(h *Host, bin []byte, digest string, compiled wazero.CompiledModule) (*Module, error) {
	entries, err := scanImports(bin)
	if err != nil {
		return nil, err
	}
	funcs := compiled.ImportedFunctions()

	m := &Module{
		host:     h,
		bin:      bin,
		digest:   digest,
		compiled: compiled,
		exports:  compiled.ExportedFunctions(),
	}
	for _, e := range entries {
		imp := Import{Module: e.module, Name: e.name, Kind: e.kind}
		if e.kind == KindFunc {
			if len(funcs) == 0 {
				return nil, fmt.Errorf("import %s.%s: no function definition", e.module, e.name)
			}
			imp.Params, imp.Results = funcs[0].ParamTypes(), funcs[0].ResultTypes()
			funcs = funcs[1:]
		}
		m.imports = append(m.imports, imp)
	}
	return m, nil
}

// Digest returns the hex SHA-256 of the binary.
func (m *Module) Digest() string { return m.digest }

// Imports returns the imports of every kind in declaration order.
func (m *Module) Imports() []Import {
	return append([]Import(nil), m.imports...)
}

// Exports returns the exported function names, sorted.
func (m *Module) Exports() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Linked is a module whose every import has a matching binding. Bindings
// only supply functions, so a module importing a memory, table or global
// never links.
type Linked struct {
	module   *Module
	bindings []hostfunc.Binding
}

// Link matches every import by (module, name) and exact signature against
// registry (Validated → Linked). Nothing is instantiated.
func (m *Module) Link(registry *hostfunc.Registry) (*Linked, error) {
	if registry == nil {
		registry = hostfunc.NewRegistry()
	}

	bindings := make([]hostfunc.Binding, 0, len(m.imports))
	for _, imp := range m.imports {
		if imp.Kind != KindFunc {
			return nil, fmt.Errorf("%w: %s: only function imports can be bound", ErrUnresolvedImport, imp)
		}
		b, ok := registry.Get(imp.Module, imp.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedImport, imp)
		}
		if !sameTypes(b.Params, imp.Params) || !sameTypes(b.Results, imp.Results) {
			return nil, fmt.Errorf("%w: import %s.%s declares %s, binding provides %s",
				ErrSignatureMismatch, imp.Module, imp.Name,
				hostfunc.Signature(imp.Params, imp.Results), b.Signature())
		}
		bindings = append(bindings, b)
	}

	m.host.logger.Debug("module linked",
		zap.String("stage", StateLinked.String()),
		zap.String("digest", m.digest[:12]),
		zap.Int("bindings", len(bindings)),
	)
	return &Linked{module: m, bindings: bindings}, nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
