package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/karnameh/internal/persistence"
)

// DomainRepository implements persistence.DomainRepository using SQLite.
type DomainRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDomainRepository creates a new SQLite domain repository.
func NewDomainRepository(pool *ConnectionPool) *DomainRepository {
	return &DomainRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateDomain inserts a new domain.
func (r *DomainRepository) CreateDomain(ctx context.Context, domain persistence.Domain) error {
	if domain.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	domain.CreatedAt = now
	domain.UpdatedAt = now

	_, err := r.helper.Exec(ctx, `
		INSERT INTO domains (id, name, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		domain.ID,
		domain.Name,
		boolToInt(domain.Active),
		domain.CreatedAt.Format(time.RFC3339Nano),
		domain.UpdatedAt.Format(time.RFC3339Nano),
	)
	return r.mapper.MapError(err)
}

// UpdateDomain updates an existing domain.
func (r *DomainRepository) UpdateDomain(ctx context.Context, domain persistence.Domain) error {
	if domain.ID == "" {
		return persistence.ErrNotFound
	}

	domain.UpdatedAt = time.Now().UTC()

	result, err := r.helper.Exec(ctx, `
		UPDATE domains SET name = ?, active = ?, updated_at = ? WHERE id = ?`,
		domain.Name,
		boolToInt(domain.Active),
		domain.UpdatedAt.Format(time.RFC3339Nano),
		domain.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetDomain retrieves a domain by ID.
func (r *DomainRepository) GetDomain(ctx context.Context, id string) (persistence.Domain, error) {
	row := r.helper.QueryRow(ctx, selectDomainColumns+` WHERE id = ?`, id)
	domain, err := scanDomain(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Domain{}, persistence.ErrNotFound
		}
		return persistence.Domain{}, r.mapper.MapError(err)
	}
	return domain, nil
}

// ListDomains lists all domains ordered by name.
func (r *DomainRepository) ListDomains(ctx context.Context) ([]persistence.Domain, error) {
	return r.listDomains(ctx, selectDomainColumns+` ORDER BY name, id`)
}

// ListActiveDomains lists domains that are active.
func (r *DomainRepository) ListActiveDomains(ctx context.Context) ([]persistence.Domain, error) {
	return r.listDomains(ctx, selectDomainColumns+` WHERE active = 1 ORDER BY name, id`)
}

func (r *DomainRepository) listDomains(ctx context.Context, query string) ([]persistence.Domain, error) {
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var domains []persistence.Domain
	for rows.Next() {
		domain, err := scanDomain(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}

// DeleteDomain removes a domain by ID.
func (r *DomainRepository) DeleteDomain(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM domains WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const selectDomainColumns = `
	SELECT id, name, active, created_at, updated_at
	FROM domains`

func scanDomain(scan func(...any) error) (persistence.Domain, error) {
	var domain persistence.Domain
	var active int
	var createdAtStr, updatedAtStr string

	err := scan(&domain.ID, &domain.Name, &active, &createdAtStr, &updatedAtStr)
	if err != nil {
		return persistence.Domain{}, err
	}

	domain.Active = active != 0

	if domain.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return persistence.Domain{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if domain.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr); err != nil {
		return persistence.Domain{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return domain, nil
}
