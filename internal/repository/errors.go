package repository

import (
	"errors"
	"fmt"

	"github.com/noah-isme/aquacentre-api/pkg/database"
)

// ErrDuplicate is returned when an insert collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

func wrapInsert(op string, err error) error {
	if database.IsUniqueViolation(err, "") {
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
