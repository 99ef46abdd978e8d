package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/andreypavlenko/jobber/modules/users/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements ports.UserRepository
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, locale, plan, mailbox, portals, notification_prefs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	user.ID = uuid.New().String()
	if user.Plan == "" {
		user.Plan = model.PlanFree
	}
	if user.NotificationPrefs.Types == nil {
		user.NotificationPrefs = model.NotificationPreferences{EmailEnabled: true, Types: map[string]bool{}}
	}

	mailbox, portals, prefs, err := encodeUserJSON(user)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Locale,
		user.Plan,
		mailbox,
		portals,
		prefs,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Check for unique constraint violation
		if errors.Is(err, pgx.ErrNoRows) || containsString(err.Error(), "duplicate key") {
			return model.ErrUserAlreadyExists
		}
		return err
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, locale, plan, mailbox, portals, notification_prefs, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanRow(r.pool.QueryRow(ctx, query, userID))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, locale, plan, mailbox, portals, notification_prefs, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) scanRow(row pgx.Row) (*model.User, error) {
	user := &model.User{}
	var mailboxRaw, portalsRaw, prefsRaw []byte
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Locale,
		&user.Plan,
		&mailboxRaw,
		&portalsRaw,
		&prefsRaw,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	if len(mailboxRaw) > 0 && string(mailboxRaw) != "null" {
		if err := json.Unmarshal(mailboxRaw, &user.Mailbox); err != nil {
			return nil, err
		}
	}
	if len(portalsRaw) > 0 {
		if err := json.Unmarshal(portalsRaw, &user.Portals); err != nil {
			return nil, err
		}
	}
	user.NotificationPrefs = model.NotificationPreferences{EmailEnabled: true, Types: map[string]bool{}}
	if len(prefsRaw) > 0 && string(prefsRaw) != "null" {
		if err := json.Unmarshal(prefsRaw, &user.NotificationPrefs); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// Update updates a user's profile fields, plan tier, mailbox credential, and
// portal credentials together so callers never partially persist state.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $2, locale = $3, plan = $4, mailbox = $5, portals = $6, notification_prefs = $7, updated_at = now()
		WHERE id = $1
	`

	mailbox, portals, prefs, err := encodeUserJSON(user)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Locale, user.Plan, mailbox, portals, prefs)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}

	return nil
}

func encodeUserJSON(user *model.User) (mailbox, portals, prefs []byte, err error) {
	mailbox, err = json.Marshal(user.Mailbox)
	if err != nil {
		return nil, nil, nil, err
	}
	if user.Portals == nil {
		user.Portals = []model.PortalCredential{}
	}
	portals, err = json.Marshal(user.Portals)
	if err != nil {
		return nil, nil, nil, err
	}
	prefs, err = json.Marshal(user.NotificationPrefs)
	if err != nil {
		return nil, nil, nil, err
	}
	return mailbox, portals, prefs, nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}

	return nil
}

// Helper function
func containsString(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > len(substr) && (s[:len(substr)] == substr || s[len(s)-len(substr):] == substr || contains(s, substr)))
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
