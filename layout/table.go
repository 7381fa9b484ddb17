package layout

// Primitive is the size and alignment of a named scalar type.
type Primitive struct {
	Size  int  `yaml:"size"`
	Align int  `yaml:"align"`
	Float bool `yaml:"float,omitempty"`
}

// Table holds everything the layout engine needs that the declarations
// themselves do not say: scalar sizes, pointer width and, for backends that
// must evaluate array sizes, the value of named constants.
type Table struct {
	Primitives   map[string]Primitive
	Constants    map[string]uint64
	PointerSize  int
	PointerAlign int
}

func integer(size int) Primitive {
	return Primitive{Size: size, Align: size}
}

func float(size int) Primitive {
	return Primitive{Size: size, Align: size, Float: true}
}

// DefaultTable describes an LP64 target with the Win32 fixed-width names,
// the C99 <stdint.h> names and Go's own sized types.
func DefaultTable() *Table {
	t := &Table{
		Primitives:   map[string]Primitive{},
		Constants:    map[string]uint64{},
		PointerSize:  8,
		PointerAlign: 8,
	}

	for size, names := range map[int][]string{
		1: {
			"char", "int8_t", "uint8_t",
			"BYTE", "CHAR", "UCHAR", "BOOLEAN", "INT8", "UINT8",
			"int8", "uint8", "byte", "bool",
		},
		2: {
			"short", "int16_t", "uint16_t",
			"WORD", "SHORT", "USHORT", "WCHAR", "INT16", "UINT16",
			"int16", "uint16",
		},
		4: {
			"int", "int32_t", "uint32_t",
			"DWORD", "LONG", "ULONG", "BOOL", "INT", "UINT", "INT32", "UINT32", "HRESULT", "NTSTATUS",
			"int32", "uint32", "rune",
		},
		8: {
			"long", "int64_t", "uint64_t", "intptr_t", "uintptr_t", "size_t", "ssize_t",
			"QWORD", "DWORD64", "ULONGLONG", "LONGLONG", "INT64", "UINT64", "LARGE_INTEGER", "ULARGE_INTEGER",
			"SIZE_T", "ULONG_PTR", "LONG_PTR", "DWORD_PTR", "UINT_PTR", "INT_PTR",
			"HANDLE", "PVOID", "LPVOID", "HMODULE", "HINSTANCE",
			"int64", "uint64", "uintptr",
		},
	} {
		for _, name := range names {
			t.Primitives[name] = integer(size)
		}
	}

	for name, p := range map[string]Primitive{
		"float":   float(4),
		"double":  float(8),
		"FLOAT":   float(4),
		"DOUBLE":  float(8),
		"float32": float(4),
		"float64": float(8),
	} {
		t.Primitives[name] = p
	}

	return t
}

// Merge overlays other's entries on t. Zero pointer fields in other keep t's.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for name, p := range other.Primitives {
		t.Primitives[name] = p
	}
	for name, v := range other.Constants {
		t.Constants[name] = v
	}
	if other.PointerSize != 0 {
		t.PointerSize = other.PointerSize
	}
	if other.PointerAlign != 0 {
		t.PointerAlign = other.PointerAlign
	}
}
