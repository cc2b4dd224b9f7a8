package session

import (
	"context"
	"errors"
	"time"

	"github.com/wagate/pkg/entities"
	"gorm.io/gorm"
)

// ErrNotPersisted is returned by Repository.Find for unknown ids.
var ErrNotPersisted = errors.New("session row not found")

// Repository is the slice of persistence the lifecycle needs.
type Repository interface {
	// Upsert writes the row and reports whether it was newly created.
	Upsert(ctx context.Context, row entities.Session) (bool, error)
	Find(ctx context.Context, id string) (*entities.Session, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]entities.Session, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]entities.Session, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	SaveQR(ctx context.Context, id string, qr string, at time.Time) error
	MarkConnected(ctx context.Context, id, phone, pushName string, at time.Time) error
	MarkDisconnected(ctx context.Context, id string, status Status, at time.Time) error
	// ResetConnection sets status and clears phone, push name, profile
	// picture, QR and connection timestamps. A missing row is not an error.
	ResetConnection(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) Upsert(ctx context.Context, row entities.Session) (bool, error) {
	var existing entities.Session
	err := r.db.WithContext(ctx).Where("id = ?", row.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return false, err
	}

	existing.UserID = row.UserID
	existing.Config = row.Config
	existing.Status = row.Status
	return false, r.db.WithContext(ctx).Save(&existing).Error
}

func (r *repository) Find(ctx context.Context, id string) (*entities.Session, error) {
	var row entities.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotPersisted
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uint) ([]entities.Session, error) {
	var rows []entities.Session
	err := r.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("created_at").Find(&rows).Error
	return rows, err
}

func (r *repository) ListByStatus(ctx context.Context, statuses ...Status) ([]entities.Session, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	var rows []entities.Session
	err := r.db.WithContext(ctx).Where("status IN ?", values).Order("created_at").Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	return r.update(ctx, id, map[string]any{"status": string(status)})
}

func (r *repository) SaveQR(ctx context.Context, id string, qr string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":     string(StatusQRReady),
		"qr_code":    qr,
		"last_qr_at": at,
	})
}

func (r *repository) MarkConnected(ctx context.Context, id, phone, pushName string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":          string(StatusConnected),
		"phone":           phone,
		"push_name":       pushName,
		"qr_code":         "",
		"connected_at":    at,
		"disconnected_at": nil,
	})
}

func (r *repository) MarkDisconnected(ctx context.Context, id string, status Status, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":          string(status),
		"disconnected_at": at,
	})
}

func (r *repository) ResetConnection(ctx context.Context, id string, status Status) error {
	return r.update(ctx, id, map[string]any{
		"status":          string(status),
		"phone":           "",
		"push_name":       "",
		"profile_pic_url": "",
		"qr_code":         "",
		"connected_at":    nil,
		"disconnected_at": nil,
		"last_qr_at":      nil,
	})
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Session{}).Error
}

// update ignores missing rows: a session deleted out from under us has
// nothing left to record.
func (r *repository) update(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).Updates(fields).Error
}
