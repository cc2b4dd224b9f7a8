package webhook

import (
	"context"
	"errors"

	"github.com/wagate/pkg/entities"
	"github.com/wagate/pkg/utils"
	"gorm.io/gorm"
)

const logsPageSize = 20

// Deliveries is what the dispatcher needs from persistence.
type Deliveries interface {
	ActiveForSession(ctx context.Context, sessionID string) ([]entities.Webhook, error)
	AppendLog(ctx context.Context, row entities.WebhookLog) error
}

type Repository interface {
	Deliveries
	Create(ctx context.Context, hook entities.Webhook) error
	Update(ctx context.Context, hook entities.Webhook) error
	Find(ctx context.Context, sessionID, id string) (entities.Webhook, error)
	ListBySession(ctx context.Context, sessionID string) ([]entities.Webhook, error)
	Delete(ctx context.Context, sessionID, id string) error
	Logs(ctx context.Context, webhookID string, page int) ([]entities.WebhookLog, int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) ActiveForSession(ctx context.Context, sessionID string) ([]entities.Webhook, error) {
	var hooks []entities.Webhook
	err := r.db.WithContext(ctx).Where("session_id = ? AND active = ?", sessionID, true).Find(&hooks).Error
	return hooks, err
}

func (r *repository) AppendLog(ctx context.Context, row entities.WebhookLog) error {
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *repository) Create(ctx context.Context, hook entities.Webhook) error {
	return r.db.WithContext(ctx).Create(&hook).Error
}

func (r *repository) Update(ctx context.Context, hook entities.Webhook) error {
	return r.db.WithContext(ctx).Save(&hook).Error
}

func (r *repository) Find(ctx context.Context, sessionID, id string) (entities.Webhook, error) {
	var hook entities.Webhook
	err := r.db.WithContext(ctx).Where("id = ? AND session_id = ?", id, sessionID).First(&hook).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return hook, ErrWebhookNotFound
	}
	return hook, err
}

func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]entities.Webhook, error) {
	var hooks []entities.Webhook
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at").Find(&hooks).Error
	return hooks, err
}

func (r *repository) Delete(ctx context.Context, sessionID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND session_id = ?", id, sessionID).Delete(&entities.Webhook{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWebhookNotFound
	}
	return r.db.WithContext(ctx).Where("webhook_id = ?", id).Delete(&entities.WebhookLog{}).Error
}

func (r *repository) Logs(ctx context.Context, webhookID string, page int) ([]entities.WebhookLog, int, error) {
	var rows []entities.WebhookLog
	totalPages, err := utils.Pagination(ctx, r.db, &rows, page, logsPageSize, "created_at DESC, attempt DESC", "webhook_id = ?", webhookID)
	return rows, totalPages, err
}
