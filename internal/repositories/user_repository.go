package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"leadchat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user and access-group persistence.
type UserRepository interface {
	Get(ctx context.Context, userID int) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Get fetches a user together with the permission bundle of their
// access group, when they have one.
func (r *UserRepo) Get(ctx context.Context, userID int) (models.User, error) {
	var row struct {
		models.User
		GroupPermissions models.PermissionSet `db:"group_permissions"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT u.id, u.name, u.email, u.role, u.access_group_id, u.created_at,
            COALESCE(g.permissions, '{}'::jsonb) AS group_permissions
        FROM users u LEFT JOIN access_groups g ON g.id = u.access_group_id
        WHERE u.id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	user := row.User
	user.Permissions = row.GroupPermissions
	return user, nil
}

// List returns all users, for assignment pickers and address lookups.
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, name, email, role, access_group_id, created_at FROM users ORDER BY name ASC`)
	return users, err
}
