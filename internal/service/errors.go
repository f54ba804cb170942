package service

import (
	"errors"

	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
	"github.com/Sarcastic-Soul/blog-app/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// translateStoreErr maps store errors to domain errors. notFound is the
// message used when the record does not exist.
func translateStoreErr(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var se *store.Error
	msg := ""
	if errors.As(err, &se) {
		msg = se.Message
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(notFound).WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflict(msg).WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(msg).WithCause(err)
	case errors.Is(err, store.ErrUnavailable):
		return domainerrors.Unavailable("store unavailable", err)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "store failure")
	}
}
