package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return newServiceError(http.StatusNotFound, CodeNotFound, "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		if strings.Contains(pgErr.ConstraintName, "flag_unit_category") {
			return newServiceError(http.StatusConflict, CodeCategoryConflict, "unit already carries an open flag of this category", err)
		}
		return newServiceError(http.StatusConflict, CodeInvalidBody, "unique constraint violated", err)
	case "23503": // foreign_key_violation
		return newServiceError(http.StatusUnprocessableEntity, CodeNotFound, "referenced record not found", err)
	case "23514": // check_violation
		if strings.Contains(pgErr.ConstraintName, "scope") {
			return newServiceError(http.StatusUnprocessableEntity, CodeInvalidScope, "flag requires a person or unit scope", err)
		}
		return newServiceError(http.StatusBadRequest, CodeInvalidBody, "check constraint violated", err)
	default:
		return newServiceError(http.StatusInternalServerError, CodeInternal, fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
