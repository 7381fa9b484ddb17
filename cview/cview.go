// Package cview backs the checked views that c2go generates. The unchecked
// FromBytes accessors skip these checks entirely.
package cview

import (
	"fmt"
	"unsafe"
)

type ShortBufferError struct {
	Type string
	Need int
	Have int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("cview: %s needs %d bytes, buffer has %d", e.Type, e.Need, e.Have)
}

type MisalignedError struct {
	Type  string
	Align int
	Addr  uintptr
}

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("cview: %s needs %d-byte alignment, buffer starts at %#x", e.Type, e.Align, e.Addr)
}

// Check reports whether b can back a value of the named type: it must hold at
// least size bytes and start on an align boundary. A zero-size type accepts
// any buffer, including an empty one.
func Check(b []byte, typ string, size, align int) error {
	if len(b) < size {
		return &ShortBufferError{Type: typ, Need: size, Have: len(b)}
	}
	if size == 0 {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&b[0]))
	if align > 1 && addr%uintptr(align) != 0 {
		return &MisalignedError{Type: typ, Align: align, Addr: addr}
	}
	return nil
}

// empty backs views of zero-size types over empty buffers. Its alignment
// covers every Go type.
var empty struct {
	_ [0]uint64
	_ [0]complex128
}

// Pointer returns the address of b's first byte. An empty b yields the
// address of a zero-size sentinel, so a view of a zero-size type is never
// nil.
func Pointer(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return unsafe.Pointer(&empty)
	}
	return unsafe.Pointer(&b[0])
}
