package application

import (
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/pkg/errors"
)

// toError maps storage and domain errors that were not already given a code.
func toError(err error) errors.Error {
	if err == nil {
		return nil
	}

	var typed errors.Error
	if errors.As(err, &typed) {
		return typed
	}

	switch {
	case errors.Is(err, domain.ErrWriteConflict):
		return errors.WRITE_CONFLICT.Wrap(err)
	case errors.Is(err, domain.ErrPropertyNotFound):
		return errors.PROPERTY_NOT_FOUND.Wrap(err)
	case errors.Is(err, domain.ErrPositionNotFound):
		return errors.POSITION_NOT_FOUND.Wrap(err)
	case errors.Is(err, domain.ErrAccountNotFound):
		return errors.ACCOUNT_NOT_FOUND.Wrap(err)
	}
	return errors.INTERNAL_ERROR.Wrap(err)
}

func propertyNotFound(address string, err error) error {
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return errors.PROPERTY_NOT_FOUND.New("property %s not found", address).
			WithMetadata(errors.PropertyMetadata{Property: address})
	}
	return err
}
