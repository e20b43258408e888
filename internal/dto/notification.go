package dto

// NotificationItem is the listing shape of a notification.
type NotificationItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// NotificationList is returned by the inbox endpoint.
type NotificationList struct {
	Notifications []NotificationItem `json:"notifications"`
	UnreadCount   int                `json:"unread_count"`
	TotalCount    int                `json:"total_count"`
}

// UnreadCount is returned by the badge endpoint.
type UnreadCount struct {
	UnreadCount int `json:"unread_count"`
}

// MarkAllReadResult reports how many rows flipped.
type MarkAllReadResult struct {
	Updated int64 `json:"updated"`
}

// ScheduleBroadcastList audits schedule fan-out delivery to the caller.
type ScheduleBroadcastList struct {
	Notifications []NotificationItem `json:"notifications"`
	Count         int                `json:"count"`
	UnreadCount   int                `json:"unread_count"`
}

// BroadcastRequest is an admin-directed send to explicit accounts.
type BroadcastRequest struct {
	AccountIDs []string `json:"account_ids" validate:"required,min=1,max=500,dive,uuid"`
	Title      string   `json:"title" validate:"required,max=200"`
	Message    string   `json:"message" validate:"required"`
	Type       string   `json:"type" validate:"omitempty,max=50"`
}

// CourseMessageRequest is a teacher message to enrolled students.
type CourseMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// DeliveryResult is the outcome for one recipient.
type DeliveryResult struct {
	AccountID      string `json:"account_id"`
	OK             bool   `json:"ok"`
	NotificationID string `json:"notification_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// DeliveryReport summarises a best-effort fan-out.
type DeliveryReport struct {
	Delivered int              `json:"delivered"`
	Failed    int              `json:"failed"`
	Results   []DeliveryResult `json:"results"`
}
