package errors

import stderrors "errors"

// Is, As and New re-export the standard library helpers so callers importing
// this package under the name errors keep access to them.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }
