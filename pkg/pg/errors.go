package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/multisite/pkg/tenant"
)

var (
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrEmptyConnectionString    = errors.New("empty postgres connection string, use PG_CONN_URL env var")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
)

// Constraint names declared by the embedded migrations.
const (
	aliasDomainKey    = "multisite_alias_domain_key"
	aliasCanonicalKey = "multisite_alias_canonical_key"
	tenantPKey        = "multisite_tenant_pkey"
)

// IsNotFoundError detects pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolationError detects referential integrity violations (SQLSTATE 23503).
func IsForeignKeyViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// mapError translates driver errors into the tenant package's sentinels.
// Anything unrecognised is treated as the store being unreachable.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if IsNotFoundError(err) {
		return fmt.Errorf("%s: %w", what, tenant.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505" && pgErr.ConstraintName == aliasCanonicalKey:
			return tenant.NewValidationError("is_canonical", "tenant already has a canonical alias")
		case pgErr.Code == "23505" && pgErr.ConstraintName == tenantPKey:
			return tenant.NewValidationError("id", "tenant already exists")
		case pgErr.Code == "23505" && pgErr.ConstraintName == aliasDomainKey:
			return tenant.NewValidationError("domain", "alias with this domain already exists")
		case pgErr.Code == "23505":
			return tenant.NewValidationError(pgErr.ColumnName, "duplicate value violates %s", pgErr.ConstraintName)
		case pgErr.Code == "23503":
			return tenant.NewValidationError("tenant_id", "tenant does not exist")
		case pgErr.Code == "23514":
			return tenant.NewValidationError("is_canonical", "must be true or unset")
		}
		return fmt.Errorf("%s: %w", what, err)
	}

	return errors.Join(tenant.ErrStoreUnavailable, fmt.Errorf("%s: %w", what, err))
}
