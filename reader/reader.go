// Package reader pulls NUL-terminated data symbols out of shared objects.
package reader

import "github.com/coreos/pkg/dlopen"

import "C"

// ReadSymbolString opens the library at from and returns the C string
// stored at symbol.
func ReadSymbolString(from, symbol string) (string, error) {
	handle, err := dlopen.GetHandle([]string{from})
	if err != nil {
		return "", err
	}
	defer handle.Close()

	sym, err := handle.GetSymbolPointer(symbol)
	if err != nil {
		return "", err
	}

	return C.GoString((*C.char)(sym)), nil
}
