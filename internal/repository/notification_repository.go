package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const notificationColumns = `id, account_id, sender_account_id, title, message, type, is_read, created_at`

// NotificationRepository persists notifications. Each write touches a
// single row.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one unread notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead = false
	const query = `INSERT INTO notifications (id, account_id, sender_account_id, title, message, type, is_read, created_at)
VALUES (:id, :account_id, :sender_account_id, :title, :message, :type, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByAccount returns the newest notifications of an account.
func (r *NotificationRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// Counts returns total and unread totals of an account.
func (r *NotificationRepository) Counts(ctx context.Context, accountID string) (models.NotificationCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_read = FALSE) AS unread FROM notifications WHERE account_id = $1`
	var counts models.NotificationCounts
	if err := r.db.GetContext(ctx, &counts, query, accountID); err != nil {
		return models.NotificationCounts{}, fmt.Errorf("count notifications: %w", err)
	}
	return counts, nil
}

// MarkRead flags one notification owned by accountID as read. It returns
// the number of matched rows so already-read rows still count.
func (r *NotificationRepository) MarkRead(ctx context.Context, accountID, id string) (int64, error) {
	return r.exec(ctx, "mark notification read", `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND account_id = $2`, id, accountID)
}

// MarkAllRead flags every unread notification of accountID as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, accountID string) (int64, error) {
	return r.exec(ctx, "mark all notifications read", `UPDATE notifications SET is_read = TRUE WHERE account_id = $1 AND is_read = FALSE`, accountID)
}

// Delete removes one notification owned by accountID.
func (r *NotificationRepository) Delete(ctx context.Context, accountID, id string) (int64, error) {
	return r.exec(ctx, "delete notification", `DELETE FROM notifications WHERE id = $1 AND account_id = $2`, id, accountID)
}

// ListByTitlePatterns returns the newest notifications of an account whose
// title matches any ILIKE pattern.
func (r *NotificationRepository) ListByTitlePatterns(ctx context.Context, accountID string, patterns []string, limit int) ([]models.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE account_id = $1 AND title ILIKE ANY($2) ORDER BY created_at DESC, id DESC LIMIT $3`
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, accountID, pq.Array(patterns), limit); err != nil {
		return nil, fmt.Errorf("list notifications by title: %w", err)
	}
	return items, nil
}

// CountsByTitlePatterns mirrors Counts restricted to matching titles.
func (r *NotificationRepository) CountsByTitlePatterns(ctx context.Context, accountID string, patterns []string) (models.NotificationCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_read = FALSE) AS unread FROM notifications WHERE account_id = $1 AND title ILIKE ANY($2)`
	var counts models.NotificationCounts
	if err := r.db.GetContext(ctx, &counts, query, accountID, pq.Array(patterns)); err != nil {
		return models.NotificationCounts{}, fmt.Errorf("count notifications by title: %w", err)
	}
	return counts, nil
}

// ListConversation returns notifications exchanged between two accounts in
// either direction, newest first.
func (r *NotificationRepository) ListConversation(ctx context.Context, accountID, otherAccountID string, limit int) ([]models.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications
WHERE (account_id = $1 AND sender_account_id = $2) OR (account_id = $2 AND sender_account_id = $1)
ORDER BY created_at DESC, id DESC LIMIT $3`
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, accountID, otherAccountID, limit); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return items, nil
}

func (r *NotificationRepository) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows: %w", op, err)
	}
	return affected, nil
}
