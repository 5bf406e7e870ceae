package vfs

import "errors"

var (
	// ErrNotFound is returned when a name has no entry in the directory.
	ErrNotFound = errors.New("no such file or directory")

	// ErrNotADirectory is returned when a directory operation targets a file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotAFile is returned when a file operation targets a directory.
	ErrNotAFile = errors.New("is a directory")

	// ErrInvalidTree is returned when a tree definition cannot be built.
	ErrInvalidTree = errors.New("invalid tree")
)

// PathError records a failed filesystem operation.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
