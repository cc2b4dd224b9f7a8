package entities

import (
	"time"
)

const (
	RetryPolicyLinear      = "linear"
	RetryPolicyConstant    = "constant"
	RetryPolicyExponential = "exponential"

	WebhookLogSuccess = "success"
	WebhookLogFailure = "failure"
)

// Webhook is a subscriber endpoint for one session. Events holds canonical
// event names only; wildcards are expanded before storage.
type Webhook struct {
	ID                string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SessionID         string            `json:"session_id" gorm:"type:varchar(100);index;not null"`
	URL               string            `json:"url" gorm:"type:text;not null"`
	Events            []string          `json:"events" gorm:"serializer:json"`
	Secret            string            `json:"-" gorm:"type:varchar(255)"`
	Headers           map[string]string `json:"headers" gorm:"serializer:json"`
	RetryAttempts     int               `json:"retry_attempts"`
	RetryDelaySeconds int               `json:"retry_delay_seconds"`
	RetryPolicy       string            `json:"retry_policy" gorm:"type:varchar(20)"`
	TimeoutSeconds    int               `json:"timeout_seconds"`
	Active            bool              `json:"active" gorm:"index"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	Session *Session `json:"-" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// WebhookLog is one delivery attempt. Rows are append-only.
type WebhookLog struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	WebhookID  string    `json:"webhook_id" gorm:"type:varchar(36);index;not null"`
	SessionID  string    `json:"session_id" gorm:"type:varchar(100);index"`
	EventID    string    `json:"event_id" gorm:"type:varchar(36)"`
	Event      string    `json:"event" gorm:"type:varchar(50);not null"`
	Status     string    `json:"status" gorm:"type:varchar(10);not null"`
	StatusCode int       `json:"status_code"`
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error" gorm:"type:text"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}
