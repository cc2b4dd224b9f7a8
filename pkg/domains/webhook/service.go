package webhook

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wagate/pkg/dtos"
	"github.com/wagate/pkg/entities"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/events"
)

const (
	DefaultRetryAttempts     = 3
	DefaultRetryDelaySeconds = 5
	DefaultRetryPolicy       = entities.RetryPolicyExponential
	DefaultTimeoutSeconds    = 10
)

type Deliverer interface {
	Deliver(ctx context.Context, hook entities.Webhook, evt eventbus.Event) Result
}

type Service interface {
	Create(ctx context.Context, sessionID string, req dtos.WebhookCreateDTO) (entities.Webhook, error)
	Update(ctx context.Context, sessionID, id string, req dtos.WebhookUpdateDTO) (entities.Webhook, error)
	Delete(ctx context.Context, sessionID, id string) error
	Get(ctx context.Context, sessionID, id string) (entities.Webhook, error)
	List(ctx context.Context, sessionID string) ([]entities.Webhook, error)
	Logs(ctx context.Context, sessionID, id string, page int) ([]entities.WebhookLog, int, error)
	Test(ctx context.Context, sessionID, id string) (Result, error)
}

type service struct {
	repository Repository
	deliverer  Deliverer
	timeout    int
	now        func() time.Time
}

// NewService builds the webhook CRUD service. defaultTimeout applies to
// webhooks created without an explicit timeout.
func NewService(r Repository, d Deliverer, defaultTimeout time.Duration) Service {
	timeout := int(defaultTimeout / time.Second)
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds
	}
	return &service{
		repository: r,
		deliverer:  d,
		timeout:    timeout,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *service) Create(ctx context.Context, sessionID string, req dtos.WebhookCreateDTO) (entities.Webhook, error) {
	if err := validURL(req.URL); err != nil {
		return entities.Webhook{}, err
	}
	types, err := events.Normalize(req.Events)
	if err != nil {
		return entities.Webhook{}, err
	}

	hook := entities.Webhook{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		URL:               strings.TrimSpace(req.URL),
		Events:            events.Strings(types),
		Secret:            req.Secret,
		Headers:           req.Headers,
		RetryAttempts:     DefaultRetryAttempts,
		RetryDelaySeconds: DefaultRetryDelaySeconds,
		RetryPolicy:       DefaultRetryPolicy,
		TimeoutSeconds:    s.timeout,
		Active:            true,
	}
	if req.RetryAttempts != nil {
		hook.RetryAttempts = *req.RetryAttempts
	}
	if req.RetryDelaySeconds != nil {
		hook.RetryDelaySeconds = *req.RetryDelaySeconds
	}
	if req.RetryPolicy != "" {
		hook.RetryPolicy = req.RetryPolicy
	}
	if req.TimeoutSeconds != nil {
		hook.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.Active != nil {
		hook.Active = *req.Active
	}
	if !validPolicy(hook.RetryPolicy) {
		return entities.Webhook{}, ErrInvalidPolicy
	}

	if err := s.repository.Create(ctx, hook); err != nil {
		return entities.Webhook{}, err
	}
	return s.repository.Find(ctx, sessionID, hook.ID)
}

func (s *service) Update(ctx context.Context, sessionID, id string, req dtos.WebhookUpdateDTO) (entities.Webhook, error) {
	hook, err := s.repository.Find(ctx, sessionID, id)
	if err != nil {
		return hook, err
	}

	if req.URL != nil {
		if err := validURL(*req.URL); err != nil {
			return hook, err
		}
		hook.URL = strings.TrimSpace(*req.URL)
	}
	if req.Events != nil {
		types, err := events.Normalize(req.Events)
		if err != nil {
			return hook, err
		}
		hook.Events = events.Strings(types)
	}
	if req.Secret != nil {
		hook.Secret = *req.Secret
	}
	if req.Headers != nil {
		hook.Headers = req.Headers
	}
	if req.RetryAttempts != nil {
		hook.RetryAttempts = *req.RetryAttempts
	}
	if req.RetryDelaySeconds != nil {
		hook.RetryDelaySeconds = *req.RetryDelaySeconds
	}
	if req.RetryPolicy != nil {
		if !validPolicy(*req.RetryPolicy) {
			return hook, ErrInvalidPolicy
		}
		hook.RetryPolicy = *req.RetryPolicy
	}
	if req.TimeoutSeconds != nil {
		hook.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.Active != nil {
		hook.Active = *req.Active
	}

	if err := s.repository.Update(ctx, hook); err != nil {
		return hook, err
	}
	return hook, nil
}

func (s *service) Delete(ctx context.Context, sessionID, id string) error {
	return s.repository.Delete(ctx, sessionID, id)
}

func (s *service) Get(ctx context.Context, sessionID, id string) (entities.Webhook, error) {
	return s.repository.Find(ctx, sessionID, id)
}

func (s *service) List(ctx context.Context, sessionID string) ([]entities.Webhook, error) {
	return s.repository.ListBySession(ctx, sessionID)
}

func (s *service) Logs(ctx context.Context, sessionID, id string, page int) ([]entities.WebhookLog, int, error) {
	if _, err := s.repository.Find(ctx, sessionID, id); err != nil {
		return nil, 0, err
	}
	return s.repository.Logs(ctx, id, page)
}

// Test delivers a synthetic SESSION_STATUS event to one webhook, ignoring its
// event filter and active flag, and waits for the outcome.
func (s *service) Test(ctx context.Context, sessionID, id string) (Result, error) {
	hook, err := s.repository.Find(ctx, sessionID, id)
	if err != nil {
		return Result{}, err
	}
	evt := eventbus.Event{
		ID:        uuid.NewString(),
		Type:      events.SessionStatus,
		SessionID: sessionID,
		Timestamp: s.now(),
		Data: map[string]any{
			"test":    true,
			"message": "webhook test delivery",
		},
	}
	return s.deliverer.Deliver(ctx, hook, evt), nil
}

// ToDTO renders a webhook for API responses.
func ToDTO(hook entities.Webhook) dtos.WebhookDTO {
	return dtos.WebhookDTO{
		ID:                hook.ID,
		SessionID:         hook.SessionID,
		URL:               hook.URL,
		Events:            events.ExternalNames(hookTypes(hook)),
		HasSecret:         hook.Secret != "",
		Headers:           hook.Headers,
		RetryAttempts:     hook.RetryAttempts,
		RetryDelaySeconds: hook.RetryDelaySeconds,
		RetryPolicy:       hook.RetryPolicy,
		TimeoutSeconds:    hook.TimeoutSeconds,
		Active:            hook.Active,
		CreatedAt:         hook.CreatedAt,
		UpdatedAt:         hook.UpdatedAt,
	}
}

func validURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

func hookTypes(hook entities.Webhook) []events.Type {
	out := make([]events.Type, len(hook.Events))
	for i, name := range hook.Events {
		out[i] = events.Type(name)
	}
	return out
}
