package link

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Transaction runs fn against a repository bound to one transaction.
	// Group-scoped mutations must go through this so the lock taken by
	// GroupLocked covers every statement of the sequence.
	Transaction(ctx context.Context, fn func(r Repository) error) error

	Create(ctx context.Context, l *Link) error
	GetByID(ctx context.Context, id string) (*Link, error)
	// Group returns the active members of an (owner, role) group: current,
	// non-pending, ordered by display_order.
	Group(ctx context.Context, owner Owner, role Role) ([]*Link, error)
	// GroupLocked is Group with the rows locked FOR UPDATE where the backend
	// supports it; this is the per-group serialization point.
	GroupLocked(ctx context.Context, owner Owner, role Role) ([]*Link, error)
	ListForOwner(ctx context.Context, owner Owner) ([]*Link, error)
	ListPendingByMedia(ctx context.Context, mediaID string) ([]*Link, error)
	// CurrentLineage returns the is_current head of the (owner, role,
	// language) lineage, or nil when the lineage is empty.
	CurrentLineage(ctx context.Context, owner Owner, role Role, language string) (*Link, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	ClearPrimary(ctx context.Context, owner Owner, role Role) error
	Delete(ctx context.Context, id string) error
	DeleteGroup(ctx context.Context, owner Owner, role Role) error
	DeleteForOwner(ctx context.Context, owner Owner) error
	CountForAsset(ctx context.Context, mediaID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(r Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) Create(ctx context.Context, l *Link) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*Link, error) {
	var l Link
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) groupScope(tx *gorm.DB, owner Owner, role Role) *gorm.DB {
	return tx.Where("owner_type = ? AND owner_id = ? AND role = ?", owner.Type, owner.ID, role).
		Where("pending = ? AND is_current = ?", false, true)
}

func (r *repository) Group(ctx context.Context, owner Owner, role Role) ([]*Link, error) {
	var links []*Link
	err := r.groupScope(r.db.WithContext(ctx), owner, role).
		Order("display_order ASC").
		Find(&links).Error
	return links, err
}

func (r *repository) GroupLocked(ctx context.Context, owner Owner, role Role) ([]*Link, error) {
	tx := r.db.WithContext(ctx)
	// SQLite serializes writers on its own and rejects FOR UPDATE.
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var links []*Link
	err := r.groupScope(tx, owner, role).
		Order("display_order ASC").
		Find(&links).Error
	return links, err
}

func (r *repository) ListForOwner(ctx context.Context, owner Owner) ([]*Link, error) {
	var links []*Link
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Where("pending = ? AND is_current = ?", false, true).
		Order("role ASC, display_order ASC").
		Find(&links).Error
	return links, err
}

func (r *repository) ListPendingByMedia(ctx context.Context, mediaID string) ([]*Link, error) {
	var links []*Link
	err := r.db.WithContext(ctx).
		Where("media_id = ? AND pending = ?", mediaID, true).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

func (r *repository) CurrentLineage(ctx context.Context, owner Owner, role Role, language string) (*Link, error) {
	var l Link
	err := r.groupScope(r.db.WithContext(ctx), owner, role).
		Where("language = ?", language).
		Order("version DESC").
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&Link{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *repository) ClearPrimary(ctx context.Context, owner Owner, role Role) error {
	return r.groupScope(r.db.WithContext(ctx).Model(&Link{}), owner, role).
		Where("is_primary = ?", true).
		Updates(map[string]interface{}{"is_primary": false, "updated_at": time.Now()}).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Link{}).Error
}

func (r *repository) DeleteGroup(ctx context.Context, owner Owner, role Role) error {
	return r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND role = ? AND pending = ?", owner.Type, owner.ID, role, false).
		Delete(&Link{}).Error
}

func (r *repository) DeleteForOwner(ctx context.Context, owner Owner) error {
	return r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Delete(&Link{}).Error
}

func (r *repository) CountForAsset(ctx context.Context, mediaID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Link{}).
		Where("media_id = ?", mediaID).
		Count(&count).Error
	return count, err
}
