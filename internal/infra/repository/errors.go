package repository

import (
	"transit-booking/internal/infra"
	"transit-booking/internal/infra/db"
	"transit-booking/internal/pkg/pgconv"
)

// wrapErr maps pgx/pgconn failures onto repository error kinds.
func wrapErr(msg string, err error) error {
	switch {
	case pgconv.IsNoRows(err):
		return infra.WrapRepoErr(msg, err, infra.KindNotFound)
	case db.IsUniqueViolation(err):
		return infra.WrapRepoErr(msg, err, infra.KindDuplicateKey)
	case db.IsForeignKeyViolation(err):
		return infra.WrapRepoErr(msg, err, infra.KindForeignKeyViolated)
	default:
		return infra.WrapRepoErr(msg, err)
	}
}
