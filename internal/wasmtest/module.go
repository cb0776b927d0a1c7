package wasmtest

// Behavior selects what the stub compute export does with its buffer.
type Behavior int

const (
	// Echo leaves the buffer unchanged, like a module handed an unsolvable board.
	Echo Behavior = iota
	// SetFirstNine stores '9' at the first byte of the buffer.
	SetFirstNine
	// Trap executes unreachable.
	Trap
	// GrowThenSetFirstNine grows memory by one page, then stores '9'.
	GrowThenSetFirstNine
)

// Stub describes a stub solver module. Empty export names omit the export.
type Stub struct {
	Allocate string
	Free     string
	Compute  string
	Memory   string
	Behavior Behavior
	// NullAlloc makes the allocator return 0.
	NullAlloc bool
	// Initialize adds an "_initialize" export that sets the "initialized" global.
	Initialize bool
	// NarrowCompute declares the compute export as (i32) -> () instead of
	// (i32, i32) -> ().
	NarrowCompute bool
}

// Emscripten returns the export surface of an emscripten standalone build.
func Emscripten() Stub {
	return Stub{
		Allocate: "malloc",
		Free:     "free",
		Compute:  "solve_sudoku",
		Memory:   "memory",
	}
}

// Global indices, exported under these names for assertions.
const (
	globalHeap = iota
	globalFrees
	globalAllocs
	globalComputes
	globalInitialized
)

// Exported global names.
const (
	GlobalFrees       = "frees"
	GlobalAllocs      = "allocs"
	GlobalComputes    = "computes"
	GlobalInitialized = "initialized"
)

// HeapBase is the first address the stub allocator hands out.
const HeapBase = 1024

const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Store8   = 0x3a
	opMemoryGrow  = 0x40
	opI32Const    = 0x41
	opI32Add      = 0x6a

	valI32 = 0x7f

	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03

	sectionType     = 1
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
)

// Solver assembles a core wasm binary for stub.
func Solver(stub Stub) []byte {
	types := [][]byte{
		{0x60, 0x01, valI32, 0x01, valI32}, // (i32) -> i32
		{0x60, 0x01, valI32, 0x00},         // (i32) -> ()
		{0x60, 0x02, valI32, valI32, 0x00}, // (i32, i32) -> ()
		{0x60, 0x00, 0x00},                 // () -> ()
	}

	computeType := uint32(2)
	if stub.NarrowCompute {
		computeType = 1
	}
	funcs := []uint32{0, 1, computeType}
	bodies := [][]byte{allocBody(stub.NullAlloc), freeBody(), computeBody(stub.Behavior)}
	if stub.Initialize {
		funcs = append(funcs, 3)
		bodies = append(bodies, initBody())
	}

	var exports [][]byte
	addExport := func(name string, kind byte, idx uint32) {
		if name == "" {
			return
		}
		e := encodeName(name)
		e = append(e, kind)
		e = append(e, uleb(idx)...)
		exports = append(exports, e)
	}
	addExport(stub.Allocate, kindFunc, 0)
	addExport(stub.Free, kindFunc, 1)
	addExport(stub.Compute, kindFunc, 2)
	if stub.Initialize {
		addExport("_initialize", kindFunc, 3)
	}
	addExport(stub.Memory, kindMemory, 0)
	addExport(GlobalFrees, kindGlobal, globalFrees)
	addExport(GlobalAllocs, kindGlobal, globalAllocs)
	addExport(GlobalComputes, kindGlobal, globalComputes)
	addExport(GlobalInitialized, kindGlobal, globalInitialized)

	globals := [][]byte{
		mutableI32(HeapBase),
		mutableI32(0),
		mutableI32(0),
		mutableI32(0),
		mutableI32(0),
	}

	var code [][]byte
	for _, body := range bodies {
		entry := uleb(uint32(len(body)))
		code = append(code, append(entry, body...))
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(sectionType, vector(types))...)
	out = append(out, section(sectionFunction, vector(ulebs(funcs)))...)
	out = append(out, section(sectionMemory, vector([][]byte{{0x00, 0x01}}))...)
	out = append(out, section(sectionGlobal, vector(globals))...)
	out = append(out, section(sectionExport, vector(exports))...)
	out = append(out, section(sectionCode, vector(code))...)
	return out
}

func increment(global byte) []byte {
	return []byte{opGlobalGet, global, opI32Const, 0x01, opI32Add, opGlobalSet, global}
}

func allocBody(null bool) []byte {
	b := []byte{0x00} // no locals
	b = append(b, increment(globalAllocs)...)
	if null {
		b = append(b, opI32Const, 0x00)
	} else {
		// result = heap; heap += size
		b = append(b, opGlobalGet, globalHeap)
		b = append(b, opGlobalGet, globalHeap, opLocalGet, 0x00, opI32Add, opGlobalSet, globalHeap)
	}
	return append(b, opEnd)
}

func freeBody() []byte {
	b := []byte{0x00}
	b = append(b, increment(globalFrees)...)
	return append(b, opEnd)
}

func computeBody(behavior Behavior) []byte {
	b := []byte{0x00}
	b = append(b, increment(globalComputes)...)
	setFirstNine := []byte{opLocalGet, 0x00, opI32Const, '9', opI32Store8, 0x00, 0x00}
	switch behavior {
	case SetFirstNine:
		b = append(b, setFirstNine...)
	case Trap:
		b = append(b, opUnreachable)
	case GrowThenSetFirstNine:
		b = append(b, opI32Const, 0x01, opMemoryGrow, 0x00, opDrop)
		b = append(b, setFirstNine...)
	}
	return append(b, opEnd)
}

func initBody() []byte {
	return []byte{0x00, opI32Const, 0x01, opGlobalSet, globalInitialized, opEnd}
}

func mutableI32(v int32) []byte {
	b := []byte{valI32, 0x01, opI32Const}
	b = append(b, sleb(v)...)
	return append(b, opEnd)
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func vector(items [][]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func ulebs(vals []uint32) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = uleb(v)
	}
	return out
}

func encodeName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
