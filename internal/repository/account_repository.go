package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const memberColumns = `p.id AS profile_id, a.id AS account_id, a.username, a.email, a.first_name, a.last_name, p.role, a.active, a.password_hash`

const memberFrom = `FROM accounts a JOIN profiles p ON p.account_id = a.id`

// AccountRepository reads and writes accounts together with their profile.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByLogin returns the member whose username or email matches login.
func (r *AccountRepository) FindByLogin(ctx context.Context, login string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` ` + memberFrom + ` WHERE LOWER(a.username) = LOWER($1) OR LOWER(a.email) = LOWER($1) ORDER BY a.created_at LIMIT 1`
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, login); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find member by login: %w", err)
	}
	return &member, nil
}

// FindByAccountID returns the member owning the account.
func (r *AccountRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` ` + memberFrom + ` WHERE a.id = $1`
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find member by account: %w", err)
	}
	return &member, nil
}

// FindByProfileID returns the member owning the profile.
func (r *AccountRepository) FindByProfileID(ctx context.Context, profileID string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` ` + memberFrom + ` WHERE p.id = $1`
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, profileID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find member by profile: %w", err)
	}
	return &member, nil
}

// ListByRoles returns members holding any of roles, ordered by name.
func (r *AccountRepository) ListByRoles(ctx context.Context, roles []models.Role) ([]models.Member, error) {
	query := `SELECT ` + memberColumns + ` ` + memberFrom + ` WHERE p.role = ANY($1) ORDER BY a.first_name, a.last_name, a.username`
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query, pq.Array(roleStrings(roles))); err != nil {
		return nil, fmt.Errorf("list members by roles: %w", err)
	}
	return members, nil
}

// AccountIDsByRoles returns the account ids of every profile holding any
// of roles, oldest account first.
func (r *AccountRepository) AccountIDsByRoles(ctx context.Context, roles []models.Role) ([]string, error) {
	const query = `SELECT a.id FROM profiles p JOIN accounts a ON a.id = p.account_id WHERE p.role = ANY($1) ORDER BY a.created_at, a.id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(roleStrings(roles))); err != nil {
		return nil, fmt.Errorf("list account ids by roles: %w", err)
	}
	return ids, nil
}

// ExistingAccountIDs filters ids down to accounts that exist.
func (r *AccountRepository) ExistingAccountIDs(ctx context.Context, ids []string) ([]string, error) {
	const query = `SELECT id FROM accounts WHERE id = ANY($1::uuid[])`
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("filter existing accounts: %w", err)
	}
	return found, nil
}

// UpdateRole changes the role of the profile attached to accountID.
func (r *AccountRepository) UpdateRole(ctx context.Context, accountID string, role models.Role) (int64, error) {
	const query = `UPDATE profiles SET role = $2 WHERE account_id = $1`
	res, err := r.db.ExecContext(ctx, query, accountID, role)
	if err != nil {
		return 0, fmt.Errorf("update profile role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update profile role rows: %w", err)
	}
	return affected, nil
}

// Create inserts an account and its profile in one transaction.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account, profile *models.Profile) (err error) {
	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	account.CreatedAt, account.UpdatedAt = now, now
	profile.AccountID = account.ID
	profile.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create account: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO accounts (id, username, email, first_name, last_name, password_hash, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Username, account.Email, account.FirstName, account.LastName, account.PasswordHash, account.Active, account.CreatedAt, account.UpdatedAt); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO profiles (id, account_id, role, department, phone, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.ID, profile.AccountID, profile.Role, profile.Department, profile.Phone, profile.CreatedAt); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create account: %w", err)
	}
	return nil
}

func roleStrings(roles []models.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
