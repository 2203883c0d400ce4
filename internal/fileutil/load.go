package fileutil

import (
	"fmt"
	"os"
)

// LoadError reports an input file that is missing, unreadable or malformed.
// It is fatal to a hook run.
type LoadError struct {
	What string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s %s: %v", e.What, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ReadInput reads a whole input file, wrapping failures in a LoadError.
func ReadInput(what, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{What: what, Path: path, Err: err}
	}
	return data, nil
}
