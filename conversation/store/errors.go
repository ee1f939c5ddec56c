package store

import (
	"errors"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
)

func isNotFound(err error) bool {
	return errors.Is(err, kgperrors.ErrNotFound)
}
