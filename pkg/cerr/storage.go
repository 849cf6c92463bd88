package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/taskdesk/pkg/storage"
)

// WrapStorageReadError maps missing documents, and paths that cannot name a
// document at all, to NotFound.
func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "Internal server error", fmt.Errorf("failed to read %s: %w", target, err))
}

func WrapStorageWriteError(target string, err error) error {
	return NewError(Internal, "Internal server error", fmt.Errorf("failed to write %s: %w", target, err))
}

func WrapStorageDeleteError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "Internal server error", fmt.Errorf("failed to delete %s: %w", target, err))
}
