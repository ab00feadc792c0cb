package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/ports"
)

// PostgresResolver resolves identities from the users table
type PostgresResolver struct {
	db *sql.DB
}

// NewPostgresResolver creates a resolver backed by PostgreSQL
func NewPostgresResolver(db *sql.DB) ports.IdentityResolver {
	return &PostgresResolver{db: db}
}

// ResolveIdentity loads the user's display name and role
func (r *PostgresResolver) ResolveIdentity(ctx context.Context, id string) (domain.Identity, error) {
	query := `SELECT id, display_name, role FROM users WHERE id = $1 AND deleted_at IS NULL`

	var identity domain.Identity
	var role string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&identity.ID, &identity.DisplayLabel, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Identity{}, domain.ErrIdentityNotFound
		}
		return domain.Identity{}, fmt.Errorf("failed to resolve identity: %w", err)
	}

	identity.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("user %s has invalid role: %w", id, err)
	}
	return identity, nil
}
