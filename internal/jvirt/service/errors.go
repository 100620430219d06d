package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jimyag/jvirt/pkg/apierror"
)

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.WrapError(apierror.ErrInvalidParameter,
			fmt.Sprintf("invalid uuid %q", raw), err)
	}
	return id, nil
}

func notFound(base *apierror.Error, kind, ref string) error {
	return apierror.WrapError(base, fmt.Sprintf("%s %s not found", kind, ref), nil)
}
