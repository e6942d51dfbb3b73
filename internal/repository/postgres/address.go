package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/pkg/database"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	db database.DBTX
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(db database.DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

const addressColumns = `id, user_id, first_name, last_name, address_line1, address_line2, city, state, postal_code, country, phone, email, is_default, created_at, updated_at`

// Create inserts a new address into the database.
func (r *AddressRepository) Create(ctx context.Context, a *domain.Address) error {
	query := `
		INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.FirstName,
		a.LastName,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PostalCode,
		a.Country,
		a.Phone,
		a.Email,
		a.IsDefault,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}

	return nil
}

// GetByID retrieves an address by its ID.
func (r *AddressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE id = $1`

	var a domain.Address
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.FirstName,
		&a.LastName,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Country,
		&a.Phone,
		&a.Email,
		&a.IsDefault,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("address", id)
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}

	return &a, nil
}

// ListByUserID returns all addresses for the given user, default first.
func (r *AddressRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.FirstName,
			&a.LastName,
			&a.AddressLine1,
			&a.AddressLine2,
			&a.City,
			&a.State,
			&a.PostalCode,
			&a.Country,
			&a.Phone,
			&a.Email,
			&a.IsDefault,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}

	if addresses == nil {
		addresses = []domain.Address{}
	}

	return addresses, nil
}

// Update modifies an existing address in the database.
func (r *AddressRepository) Update(ctx context.Context, a *domain.Address) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE addresses
		SET first_name = $1, last_name = $2, address_line1 = $3, address_line2 = $4,
		    city = $5, state = $6, postal_code = $7, country = $8, phone = $9,
		    email = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.db.Exec(ctx, query,
		a.FirstName,
		a.LastName,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PostalCode,
		a.Country,
		a.Phone,
		a.Email,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", a.ID)
	}

	return nil
}

// Delete removes an address from the database by its ID.
func (r *AddressRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM addresses WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", id)
	}

	return nil
}

// SetDefault marks the specified address as the default for the user,
// unsetting any previous default within a transaction.
func (r *AddressRepository) SetDefault(ctx context.Context, userID, addressID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Unset any existing default for this user.
	_, err = tx.Exec(ctx,
		`UPDATE addresses SET is_default = false WHERE user_id = $1 AND is_default = true`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("unset default address: %w", err)
	}

	// Set the new default.
	ct, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = true WHERE id = $1 AND user_id = $2`,
		addressID, userID,
	)
	if err != nil {
		return fmt.Errorf("set default address: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", addressID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// CountByUserID returns the number of addresses saved by the user.
func (r *AddressRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM addresses WHERE user_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}

	return count, nil
}
