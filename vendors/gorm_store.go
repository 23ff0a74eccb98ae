package vendors

import (
	"context"
	"errors"
	"time"

	"github.com/dailyyoga/cachekit/db"
	"gorm.io/gorm"
)

// GormStore is the MySQL-backed Store
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a Store on database
func NewGormStore(database db.Database) (*GormStore, error) {
	gdb, err := database.DB()
	if err != nil {
		return nil, err
	}
	return newGormStore(gdb), nil
}

func newGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb, now: time.Now}
}

// Migrate creates or updates the vendors table
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Vendor{}); err != nil {
		return ErrQuery("migrate", err)
	}
	return nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint64) (*Vendor, error) {
	var v Vendor
	if err := byID(s.db.WithContext(ctx), id).Take(&v).Error; err != nil {
		return nil, notFound("find by id", err)
	}
	return &v, nil
}

func (s *GormStore) FindBySlug(ctx context.Context, slug string) (*Vendor, error) {
	var v Vendor
	if err := bySlug(s.db.WithContext(ctx), slug).Take(&v).Error; err != nil {
		return nil, notFound("find by slug", err)
	}
	return &v, nil
}

func (s *GormStore) ListByTier(ctx context.Context, tier Tier) ([]Vendor, error) {
	var vs []Vendor
	if err := approvedInTier(s.db.WithContext(ctx), tier).Find(&vs).Error; err != nil {
		return nil, ErrQuery("list by tier", err)
	}
	return vs, nil
}

func (s *GormStore) Save(ctx context.Context, v *Vendor) error {
	v.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return ErrQuery("save", err)
	}
	return nil
}

func (s *GormStore) Approve(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Model(&Vendor{}).Where("id = ?", id).Updates(map[string]any{
		"status":     StatusApproved,
		"updated_at": s.now(),
	})
	if res.Error != nil {
		return ErrQuery("approve", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func byID(tx *gorm.DB, id uint64) *gorm.DB {
	return tx.Where("id = ?", id)
}

func bySlug(tx *gorm.DB, slug string) *gorm.DB {
	return tx.Where("slug = ?", slug)
}

func approvedInTier(tx *gorm.DB, tier Tier) *gorm.DB {
	return tx.Where("tier = ? AND status = ?", tier, StatusApproved).Order("name")
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return ErrQuery(op, err)
}
