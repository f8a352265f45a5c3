package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpWalksChain(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(CodeValidation, "quantity must be positive"))

	d := Dump(err)
	assert.Equal(t, CodeValidation, d.Code)
	assert.Len(t, d.Chain, 2)
	assert.Nil(t, d.Postgres)
	assert.Equal(t, "submit: VALIDATION_ERROR: quantity must be positive", d.TopMessage)
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgx := Wrap(CodeDependency, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}, "create user")
	d := Dump(pgx)
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23505", d.Postgres.Code)
	assert.Equal(t, "users_email_key", d.Postgres.Constraint)

	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23503", Table: "supply_requests"})
	d = Dump(pqErr)
	require.NotNil(t, d.Postgres)
	assert.Equal(t, "23503", d.Postgres.Code)
	assert.Equal(t, "supply_requests", d.Fields()["pg_table"])
}

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
