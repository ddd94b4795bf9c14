package archive

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, a *Archive) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(a).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Archive, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Archive
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// List 返回全部快照（新到旧）。列表页不需要内嵌车辆数据，但体量小，不做裁剪。
func (r *Repo) List(ctx context.Context) ([]Archive, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var archives []Archive
	if err := db.Order("archived_at DESC").Find(&archives).Error; err != nil {
		return nil, err
	}
	return archives, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ?", id).Delete(&Archive{})
	return res.RowsAffected, res.Error
}

func (r *Repo) DeleteAll(ctx context.Context) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	res := db.Where("1 = 1").Delete(&Archive{})
	return res.RowsAffected, res.Error
}
