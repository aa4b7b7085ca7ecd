package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/persist"
	"github.com/xenking/storefront/internal/domain/user"
)

const (
	userColumns = `id, name, email, phone, mobile, avatar, gender, date_of_birth,
		whatsapp_opt_in, is_admin, created_at, updated_at`

	getUserSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	listUsersSQL  = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	countUsersSQL = `SELECT count(*) FROM users`

	// The no-op update makes RETURNING yield the existing row on conflict.
	upsertUserByPhoneSQL = `INSERT INTO users (id, name, phone) VALUES ($1, 'User-' || right($2, 4), $2)
		ON CONFLICT (phone) WHERE phone <> '' DO UPDATE SET phone = EXCLUDED.phone
		RETURNING ` + userColumns

	insertUserSQL = `INSERT INTO users (id, name, email, phone, mobile, avatar, gender, date_of_birth,
		whatsapp_opt_in, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	updateUserSQL = `UPDATE users SET name = $2, email = $3, mobile = $4, avatar = $5, gender = $6,
		date_of_birth = $7, whatsapp_opt_in = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	setAdminSQL = `UPDATE users SET is_admin = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	getWishlistSQL = `SELECT wishlist FROM users WHERE id = $1`

	addWishlistSQL = `UPDATE users SET wishlist = CASE WHEN $2 = ANY(wishlist) THEN wishlist
		ELSE array_append(wishlist, $2) END
		WHERE id = $1 RETURNING wishlist`

	removeWishlistSQL = `UPDATE users SET wishlist = array_remove(wishlist, $2) WHERE id = $1 RETURNING wishlist`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	return r.one(ctx, "get user", getUserSQL, id)
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, persist.Wrap(err, "list users")
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, persist.Wrap(err, "list users")
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUsersSQL).Scan(&n); err != nil {
		return 0, persist.Wrap(err, "count users")
	}
	return n, nil
}

func (r *UserRepository) FindOrCreateByPhone(ctx context.Context, phone string) (*user.User, error) {
	return r.one(ctx, "upsert user by phone", upsertUserByPhoneSQL, uuid.NewString(), phone)
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, insertUserSQL,
		u.ID, u.Name, u.Email, u.Phone, u.Mobile, u.Avatar, u.Gender, u.DateOfBirth,
		u.WhatsappOptIn, u.IsAdmin,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return persist.Wrapf(err, "create user %q", u.ID)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, updateUserSQL,
		u.ID, u.Name, u.Email, u.Mobile, u.Avatar, u.Gender, u.DateOfBirth, u.WhatsappOptIn,
	).Scan(&u.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return user.ErrNotFound
		case isUniqueViolation(err):
			return user.ErrEmailTaken
		}
		return persist.Wrapf(err, "update user %q", u.ID)
	}
	return nil
}

func (r *UserRepository) SetAdmin(ctx context.Context, id string, admin bool) (*user.User, error) {
	return r.one(ctx, "set admin", setAdminSQL, id, admin)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		return persist.Wrapf(err, "delete user %q", id)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Wishlist(ctx context.Context, userID string) ([]string, error) {
	return r.wishlist(ctx, "get wishlist", getWishlistSQL, userID)
}

func (r *UserRepository) AddToWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	return r.wishlist(ctx, "add to wishlist", addWishlistSQL, userID, productID)
}

func (r *UserRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	return r.wishlist(ctx, "remove from wishlist", removeWishlistSQL, userID, productID)
}

func (r *UserRepository) wishlist(ctx context.Context, op, sql string, args ...any) ([]string, error) {
	var ids []string
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&ids); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, persist.Wrap(err, op)
	}
	return ids, nil
}

func (r *UserRepository) one(ctx context.Context, op, sql string, args ...any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, persist.Wrap(err, op)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Mobile, &u.Avatar, &u.Gender, &u.DateOfBirth,
		&u.WhatsappOptIn, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
