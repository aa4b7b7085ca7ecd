package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/persist"
)

const (
	addressColumns = `id, full_name, phone, alt_phone, line, pincode, landmark, city, locality,
		state, suggested_name, is_default`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 ORDER BY created_at, id`

	// Serializes address writes of one user, including the first insert.
	lockAddressesSQL = `SELECT pg_advisory_xact_lock(hashtext('addresses:' || $1))`

	insertAddressSQL = `INSERT INTO addresses (id, user_id, full_name, phone, alt_phone, line, pincode,
		landmark, city, locality, state, suggested_name, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE)`

	updateAddressSQL = `UPDATE addresses SET full_name = $3, phone = $4, alt_phone = $5, line = $6,
		pincode = $7, landmark = $8, city = $9, locality = $10, state = $11, suggested_name = $12
		WHERE user_id = $1 AND id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE user_id = $1 AND id = $2 RETURNING is_default`

	// The partial unique index is checked per row, so the old default is
	// cleared before the new one is set.
	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE
		WHERE user_id = $1 AND is_default AND id <> $2`
	setDefaultAddressSQL = `UPDATE addresses SET is_default = TRUE WHERE user_id = $1 AND id = $2`

	promoteFirstAddressSQL = `UPDATE addresses SET is_default = TRUE
		WHERE id = (SELECT id FROM addresses WHERE user_id = $1 ORDER BY created_at, id LIMIT 1)`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
// A user's first address becomes the default, and deleting the default
// promotes the oldest remaining one.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

func (r *AddressRepository) List(ctx context.Context, userID string) ([]address.Address, error) {
	return listAddresses(ctx, r.pool, userID)
}

func (r *AddressRepository) Create(ctx context.Context, userID string, a address.Address) ([]address.Address, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return r.write(ctx, userID, "create address", func(tx pgx.Tx, existing []address.Address) error {
		a.ID = uuid.NewString()
		if _, err := tx.Exec(ctx, insertAddressSQL, append([]any{a.ID, userID}, addressArgs(a)...)...); err != nil {
			return persist.Wrap(err, "insert address")
		}
		if a.IsDefault || len(existing) == 0 {
			return setDefault(ctx, tx, userID, a.ID)
		}
		return nil
	})
}

func (r *AddressRepository) Update(ctx context.Context, userID, id string, p address.Patch) ([]address.Address, error) {
	return r.write(ctx, userID, "update address", func(tx pgx.Tx, existing []address.Address) error {
		a, ok := find(existing, id)
		if !ok {
			return address.ErrNotFound
		}
		p.Apply(&a)
		if err := a.Validate(); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, updateAddressSQL, append([]any{userID, id}, addressArgs(a)...)...); err != nil {
			return persist.Wrap(err, "update address")
		}
		if p.IsDefault != nil && *p.IsDefault {
			return setDefault(ctx, tx, userID, id)
		}
		return nil
	})
}

func (r *AddressRepository) Delete(ctx context.Context, userID, id string) ([]address.Address, error) {
	return r.write(ctx, userID, "delete address", func(tx pgx.Tx, _ []address.Address) error {
		var wasDefault bool
		if err := tx.QueryRow(ctx, deleteAddressSQL, userID, id).Scan(&wasDefault); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return address.ErrNotFound
			}
			return persist.Wrap(err, "delete address")
		}
		if wasDefault {
			if _, err := tx.Exec(ctx, promoteFirstAddressSQL, userID); err != nil {
				return persist.Wrap(err, "promote default address")
			}
		}
		return nil
	})
}

func (r *AddressRepository) SetDefault(ctx context.Context, userID, id string) ([]address.Address, error) {
	return r.write(ctx, userID, "set default address", func(tx pgx.Tx, existing []address.Address) error {
		if _, ok := find(existing, id); !ok {
			return address.ErrNotFound
		}
		return setDefault(ctx, tx, userID, id)
	})
}

// write runs fn in a transaction holding the user's address lock and returns
// the list as committed.
func (r *AddressRepository) write(
	ctx context.Context,
	userID, op string,
	fn func(tx pgx.Tx, existing []address.Address) error,
) ([]address.Address, error) {
	var list []address.Address
	err := inTx(ctx, r.pool, op, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockAddressesSQL, userID); err != nil {
			return persist.Wrap(err, "lock addresses")
		}
		existing, err := listAddresses(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(tx, existing); err != nil {
			return err
		}
		list, err = listAddresses(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func setDefault(ctx context.Context, tx pgx.Tx, userID, id string) error {
	if _, err := tx.Exec(ctx, clearDefaultAddressSQL, userID, id); err != nil {
		return persist.Wrap(err, "clear default address")
	}
	if _, err := tx.Exec(ctx, setDefaultAddressSQL, userID, id); err != nil {
		return persist.Wrap(err, "set default address")
	}
	return nil
}

func find(list []address.Address, id string) (address.Address, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return address.Address{}, false
}

func listAddresses(ctx context.Context, q querier, userID string) ([]address.Address, error) {
	rows, err := q.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, persist.Wrap(err, "list addresses")
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[address.Address])
	if err != nil {
		return nil, persist.Wrap(err, "list addresses")
	}
	return list, nil
}

func addressArgs(a address.Address) []any {
	return []any{
		a.FullName, a.Phone, a.AltPhone, a.Line, a.Pincode, a.Landmark, a.City, a.Locality,
		a.State, a.SuggestedName,
	}
}
