package pg

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/multisite/pkg/tenant"
)

const (
	tenantTable = "multisite_tenant"
	aliasTable  = "multisite_alias"
)

var (
	tenantColumns = []string{"id", "domain", "name"}
	aliasColumns  = []string{"id", "domain", "tenant_id", "is_canonical", "redirect_to_canonical"}

	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
)

// DB is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements tenant.Store on the tables created by Migrate.
type Store struct {
	db DB
}

var _ tenant.Store = (*Store)(nil)

// NewStore wraps db.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetTenant implements tenant.TenantStore.
func (s *Store) GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error) {
	query, args, err := selectTenants().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	t, err := scanTenant(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("get tenant %d", id))
	}
	return t, nil
}

// ListTenants returns tenants ordered by id.
func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.queryTenants(ctx, "list tenants", selectTenants())
}

// CreateTenant inserts t. A zero id is assigned by the database.
func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	explicit := t.ID != 0
	query, args, err := insertTenant(t).ToSql()
	if err != nil {
		return err
	}
	if err := s.db.QueryRow(ctx, query, args...).Scan(&t.ID); err != nil {
		return mapError(err, "create tenant")
	}

	if explicit {
		// An explicit id bypasses the sequence.
		if _, err := s.db.Exec(ctx, syncTenantSequence); err != nil {
			return mapError(err, "sync tenant sequence")
		}
	}
	return nil
}

// UpdateTenant stores the domain and name of t.
func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	query, args, err := psql.Update(tenantTable).
		SetMap(map[string]any{
			"domain":     t.Domain,
			"name":       t.Name,
			"updated_at": sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return s.exec(ctx, fmt.Sprintf("update tenant %d", t.ID), query, args)
}

// DeleteTenant removes the tenant. Its aliases go with it.
func (s *Store) DeleteTenant(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(tenantTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return s.exec(ctx, fmt.Sprintf("delete tenant %d", id), query, args)
}

// FindByDomains implements tenant.AliasStore.
func (s *Store) FindByDomains(ctx context.Context, domains []string) ([]*tenant.Alias, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	return s.queryAliases(ctx, "find aliases", findByDomains(domains))
}

// Get implements tenant.AliasStore.
func (s *Store) Get(ctx context.Context, id int64) (*tenant.Alias, error) {
	return s.queryAlias(ctx, fmt.Sprintf("get alias %d", id), selectAliases().Where(sq.Eq{"id": id}))
}

// List returns aliases ordered by id.
func (s *Store) List(ctx context.Context) ([]*tenant.Alias, error) {
	return s.queryAliases(ctx, "list aliases", selectAliases())
}

// FindCanonical implements tenant.AliasStore.
func (s *Store) FindCanonical(ctx context.Context, tenantID int64) (*tenant.Alias, error) {
	return s.queryAlias(ctx, fmt.Sprintf("canonical alias of tenant %d", tenantID),
		selectAliases().Where(sq.Eq{"tenant_id": tenantID, "is_canonical": true}))
}

// FindByTenant implements tenant.AliasStore.
func (s *Store) FindByTenant(ctx context.Context, tenantID int64) ([]*tenant.Alias, error) {
	return s.queryAliases(ctx, fmt.Sprintf("aliases of tenant %d", tenantID),
		selectAliases().Where(sq.Eq{"tenant_id": tenantID}))
}

// ListTenantsWithoutCanonical implements tenant.AliasStore.
func (s *Store) ListTenantsWithoutCanonical(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.queryTenants(ctx, "tenants without canonical alias", withoutCanonical())
}

// Create validates a against its tenant and inserts it.
func (s *Store) Create(ctx context.Context, a *tenant.Alias) error {
	if err := s.validate(ctx, a); err != nil {
		return err
	}

	query, args, err := psql.Insert(aliasTable).
		Columns("domain", "tenant_id", "is_canonical", "redirect_to_canonical").
		Values(a.Domain, a.TenantID, a.Canonical, a.RedirectToCanonical).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	if err := s.db.QueryRow(ctx, query, args...).Scan(&a.ID); err != nil {
		return mapError(err, "create alias")
	}
	return nil
}

// Update validates a against its tenant and replaces the stored row.
func (s *Store) Update(ctx context.Context, a *tenant.Alias) error {
	if err := s.validate(ctx, a); err != nil {
		return err
	}

	query, args, err := psql.Update(aliasTable).
		SetMap(map[string]any{
			"domain":                a.Domain,
			"tenant_id":             a.TenantID,
			"is_canonical":          a.Canonical,
			"redirect_to_canonical": a.RedirectToCanonical,
		}).
		Where(sq.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return s.exec(ctx, fmt.Sprintf("update alias %d", a.ID), query, args)
}

// Delete removes the alias with a.ID.
func (s *Store) Delete(ctx context.Context, a *tenant.Alias) error {
	query, args, err := psql.Delete(aliasTable).Where(sq.Eq{"id": a.ID}).ToSql()
	if err != nil {
		return err
	}
	return s.exec(ctx, fmt.Sprintf("delete alias %d", a.ID), query, args)
}

// validate runs the checks the schema cannot express.
func (s *Store) validate(ctx context.Context, a *tenant.Alias) error {
	owner, err := s.GetTenant(ctx, a.TenantID)
	if tenant.IsNotFound(err) {
		return tenant.NewValidationError("tenant_id", "tenant %d does not exist", a.TenantID)
	}
	if err != nil {
		return err
	}
	return a.Validate(owner)
}

func (s *Store) exec(ctx context.Context, what, query string, args []any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, what)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, tenant.ErrNotFound)
	}
	return nil
}

func (s *Store) queryTenants(ctx context.Context, what string, b sq.SelectBuilder) ([]*tenant.Tenant, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*tenant.Tenant, error) {
		return scanTenant(row)
	})
	if err != nil {
		return nil, mapError(err, what)
	}
	return out, nil
}

func (s *Store) queryAlias(ctx context.Context, what string, b sq.SelectBuilder) (*tenant.Alias, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAlias(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, what)
	}
	return a, nil
}

func (s *Store) queryAliases(ctx context.Context, what string, b sq.SelectBuilder) ([]*tenant.Alias, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*tenant.Alias, error) {
		return scanAlias(row)
	})
	if err != nil {
		return nil, mapError(err, what)
	}
	return out, nil
}

const syncTenantSequence = `SELECT setval(pg_get_serial_sequence('multisite_tenant', 'id'), (SELECT MAX(id) FROM multisite_tenant))`

func selectTenants() sq.SelectBuilder {
	return psql.Select(tenantColumns...).From(tenantTable).OrderBy("id")
}

func selectAliases() sq.SelectBuilder {
	return psql.Select(aliasColumns...).From(aliasTable).OrderBy("id")
}

func insertTenant(t *tenant.Tenant) sq.InsertBuilder {
	b := psql.Insert(tenantTable).Suffix("RETURNING id")
	if t.ID != 0 {
		return b.Columns("id", "domain", "name").Values(t.ID, t.Domain, t.Name)
	}
	return b.Columns("domain", "name").Values(t.Domain, t.Name)
}

func findByDomains(domains []string) sq.SelectBuilder {
	lowered := make([]string, len(domains))
	for i, d := range domains {
		lowered[i] = strings.ToLower(d)
	}
	return selectAliases().Where(sq.Eq{"lower(domain)": lowered})
}

func withoutCanonical() sq.SelectBuilder {
	return psql.Select("t.id", "t.domain", "t.name").
		From(tenantTable + " t").
		Where("NOT EXISTS (SELECT 1 FROM " + aliasTable + " a WHERE a.tenant_id = t.id AND a.is_canonical)").
		OrderBy("t.id")
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	t := &tenant.Tenant{}
	if err := row.Scan(&t.ID, &t.Domain, &t.Name); err != nil {
		return nil, err
	}
	t.MarkLoaded()
	return t, nil
}

func scanAlias(row pgx.Row) (*tenant.Alias, error) {
	a := &tenant.Alias{}
	if err := row.Scan(&a.ID, &a.Domain, &a.TenantID, &a.Canonical, &a.RedirectToCanonical); err != nil {
		return nil, err
	}
	return a, nil
}
