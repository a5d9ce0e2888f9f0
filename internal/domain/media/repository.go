package media

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, a *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	ListByProperty(ctx context.Context, propertyID int64) ([]*Asset, error)
	// UpdateStatus atomically rewrites the status-bearing columns in one UPDATE.
	UpdateStatus(ctx context.Context, id string, fields map[string]interface{}) error
	// ApplyOutcome runs fn against the row locked FOR UPDATE and applies the
	// returned column set in the same transaction. fn returning nil columns is
	// a no-op (idempotent duplicate delivery).
	ApplyOutcome(ctx context.Context, id string, fn func(current *Asset) (map[string]interface{}, error)) (*Asset, error)
	UpdateTags(ctx context.Context, id string, tags string) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, a *Asset) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Asset, error) {
	var a Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListByProperty(ctx context.Context, propertyID int64) ([]*Asset, error) {
	var assets []*Asset
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Find(&assets).Error
	return assets, err
}

func (r *repository) UpdateStatus(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&Asset{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func (r *repository) ApplyOutcome(ctx context.Context, id string, fn func(current *Asset) (map[string]interface{}, error)) (*Asset, error) {
	var out Asset
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a Asset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssetNotFound
			}
			return err
		}
		fields, err := fn(&a)
		if err != nil {
			return err
		}
		if fields == nil {
			out = a
			return nil
		}
		fields["updated_at"] = time.Now()
		res := tx.Model(&Asset{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("asset row not updated")
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) UpdateTags(ctx context.Context, id string, tags string) error {
	return r.UpdateStatus(ctx, id, map[string]interface{}{"tags": tags})
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Asset{}).Error
}
