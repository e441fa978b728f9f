package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func toLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
