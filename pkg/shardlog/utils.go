package shardlog

import (
	"io"
	"os"
	"reflect"
)

// GetPointer returns the address of value as an unsigned integer,
// a cheap replacement for fmt.Sprintf("%p", value) in log fields.
func GetPointer(value any) uint {
	ptr := reflect.ValueOf(value).Pointer()
	return uint(uintptr(ptr))
}

// newWriter returns stdout for an empty path, otherwise the file
// opened in append mode.
func newWriter(filepath string) (*os.File, io.Writer, error) {
	if filepath == "" {
		return nil, os.Stdout, nil
	}
	f, err := os.OpenFile(filepath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}
