package database

import (
	"net/http"

	"github.com/rpupo63/blog-cms-backend/errs"
)

// duplicateAs reports a unique-key violation as entity already existing.
func duplicateAs(entity string, err error) error {
	if err != nil && errs.IsAlreadyExists(errs.NewDatabaseError("create", entity, err)) {
		return errs.NewAlreadyExists(entity)
	}
	return err
}

// txError passes through errors that already map to a 4xx status and
// reports anything else as a failed transaction.
func txError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errs.NewDatabaseError(operation, "", err).StatusCode < http.StatusInternalServerError {
		return err
	}
	return errs.NewTransactionFailedError(operation, err)
}
