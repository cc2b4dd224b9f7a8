package dtos

import "time"

// Events accepts canonical (MESSAGE_RECEIVED), dotted (message.received) or
// wildcard (* / ALL) tokens.
type WebhookCreateDTO struct {
	URL               string            `json:"url" binding:"required,url"`
	Events            []string          `json:"events" binding:"required"`
	Secret            string            `json:"secret" binding:"max=255"`
	Headers           map[string]string `json:"headers"`
	RetryAttempts     *int              `json:"retry_attempts" binding:"omitempty,min=0,max=10"`
	RetryDelaySeconds *int              `json:"retry_delay_seconds" binding:"omitempty,min=0,max=3600"`
	RetryPolicy       string            `json:"retry_policy" binding:"omitempty,retrypolicy"`
	TimeoutSeconds    *int              `json:"timeout_seconds" binding:"omitempty,min=1,max=120"`
	Active            *bool             `json:"active"`
}

type WebhookUpdateDTO struct {
	URL               *string           `json:"url" binding:"omitempty,url"`
	Events            []string          `json:"events"`
	Secret            *string           `json:"secret" binding:"omitempty,max=255"`
	Headers           map[string]string `json:"headers"`
	RetryAttempts     *int              `json:"retry_attempts" binding:"omitempty,min=0,max=10"`
	RetryDelaySeconds *int              `json:"retry_delay_seconds" binding:"omitempty,min=0,max=3600"`
	RetryPolicy       *string           `json:"retry_policy" binding:"omitempty,retrypolicy"`
	TimeoutSeconds    *int              `json:"timeout_seconds" binding:"omitempty,min=1,max=120"`
	Active            *bool             `json:"active"`
}

// WebhookDTO is the outward view of a webhook; events are in dotted form and
// the secret is never echoed back.
type WebhookDTO struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	URL               string            `json:"url"`
	Events            []string          `json:"events"`
	HasSecret         bool              `json:"has_secret"`
	Headers           map[string]string `json:"headers,omitempty"`
	RetryAttempts     int               `json:"retry_attempts"`
	RetryDelaySeconds int               `json:"retry_delay_seconds"`
	RetryPolicy       string            `json:"retry_policy"`
	TimeoutSeconds    int               `json:"timeout_seconds"`
	Active            bool              `json:"active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
