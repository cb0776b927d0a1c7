package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-sudoku/errors"
)

// Export roles of the solver contract.
const (
	RoleAllocate = "allocate"
	RoleFree     = "free"
	RoleCompute  = "compute"
	RoleMemory   = "memory"
)

// Export names probed per role, in order. Emscripten builds prefix exports
// with an underscore when the JS glue is generated.
var (
	AllocateCandidates = []string{"malloc", "_malloc", "allocate", "alloc"}
	FreeCandidates     = []string{"free", "_free", "deallocate", "dealloc"}
	ComputeCandidates  = []string{"solve_sudoku", "_solve_sudoku", "computeInPlace", "compute_in_place"}
	MemoryCandidates   = []string{"memory", "wasmMemory"}
)

// Reactor initialiser exported by standalone emscripten builds.
const initializeExport = "_initialize"

// contractWIT describes the core signatures each function role must have.
const contractWIT = `
	allocate: func(size: u32) -> u32;
	free: func(addr: u32);
	compute: func(addr: u32, len: u32);
`

// ExportNames overrides the candidate lists. An empty field keeps the
// defaults for that role.
type ExportNames struct {
	Allocate string
	Free     string
	Compute  string
	Memory   string
}

// Exports is the resolved export surface of a compiled module.
type Exports struct {
	Allocate   string
	Free       string
	Compute    string
	Memory     string
	Initialize bool
}

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var contracts = mustParseContracts(contractWIT)

func mustParseContracts(text string) map[string]signature {
	c, err := parseContracts(text)
	if err != nil {
		panic(err)
	}
	return c
}

var contractPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseContracts extracts function signatures from WIT text and flattens
// them to core value types.
func parseContracts(text string) (map[string]signature, error) {
	out := make(map[string]signature)
	for _, match := range contractPattern.FindAllStringSubmatch(text, -1) {
		var sig signature
		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				typ := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typ = p[idx+1:]
				}
				vt, err := coreType(typ)
				if err != nil {
					return nil, fmt.Errorf("%s: param %q: %w", match[1], strings.TrimSpace(p), err)
				}
				sig.params = append(sig.params, vt)
			}
		}
		if result := strings.TrimSpace(match[3]); result != "" && result != "()" {
			vt, err := coreType(result)
			if err != nil {
				return nil, fmt.Errorf("%s: result %q: %w", match[1], result, err)
			}
			sig.results = []api.ValueType{vt}
		}
		out[match[1]] = sig
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no functions found in WIT text")
	}
	return out, nil
}

// coreType maps a scalar WIT type to its core wasm representation.
func coreType(s string) (api.ValueType, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("type %s has no single core representation", s)
	}
}

func (s signature) String() string {
	return fmt.Sprintf("(%s) -> (%s)", valueTypeNames(s.params), valueTypeNames(s.results))
}

func valueTypeNames(ts []api.ValueType) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}

func (s signature) matches(def api.FunctionDefinition) bool {
	return equalTypes(s.params, def.ParamTypes()) && equalTypes(s.results, def.ResultTypes())
}

func equalTypes(a, b []api.ValueType) bool {
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

// discoverExports resolves every role against the compiled module. All
// problems are collected into a single MissingExportsError.
func discoverExports(compiled wazero.CompiledModule, names ExportNames) (Exports, error) {
	funcs := compiled.ExportedFunctions()
	mems := compiled.ExportedMemories()

	var (
		out     Exports
		missing []errors.MissingExport
	)

	resolveFunc := func(role, override string, defaults []string) string {
		candidates := candidatesFor(override, defaults)
		sig := contracts[role]
		for _, name := range candidates {
			def, ok := funcs[name]
			if !ok {
				continue
			}
			if !sig.matches(def) {
				missing = append(missing, errors.MissingExport{
					Role:       role,
					Candidates: candidates,
					Mismatch: fmt.Sprintf("export %q has signature %s, want %s",
						name, signature{def.ParamTypes(), def.ResultTypes()}, sig),
				})
				return ""
			}
			return name
		}
		missing = append(missing, errors.MissingExport{Role: role, Candidates: candidates})
		return ""
	}

	out.Allocate = resolveFunc(RoleAllocate, names.Allocate, AllocateCandidates)
	out.Free = resolveFunc(RoleFree, names.Free, FreeCandidates)
	out.Compute = resolveFunc(RoleCompute, names.Compute, ComputeCandidates)

	memCandidates := candidatesFor(names.Memory, MemoryCandidates)
	for _, name := range memCandidates {
		if _, ok := mems[name]; ok {
			out.Memory = name
			break
		}
	}
	if out.Memory == "" {
		missing = append(missing, errors.MissingExport{Role: RoleMemory, Candidates: memCandidates})
	}

	if def, ok := funcs[initializeExport]; ok && len(def.ParamTypes()) == 0 && len(def.ResultTypes()) == 0 {
		out.Initialize = true
	}

	if len(missing) > 0 {
		return out, &errors.MissingExportsError{Exports: missing}
	}
	return out, nil
}

func candidatesFor(override string, defaults []string) []string {
	if override != "" {
		return []string{override}
	}
	return defaults
}
