package dom

import "fmt"

// LoadError is returned when the markup file cannot be read.
// Missing files satisfy errors.Is(err, fs.ErrNotExist) through Unwrap.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the file content cannot be turned into a
// document tree.
type ParseError struct {
	Path   string
	Reason string
	Err    error // Underlying parser error (optional)
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
