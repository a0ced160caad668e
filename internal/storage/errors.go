package storage

import (
	"errors"

	"github.com/jackc/pgx/v4"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
