package car

import (
	"context"
	"fmt"
	"math"
	"strings"

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

// ListFilter 查询条件。空字段不参与过滤；Month/Year 必须成对出现。
type ListFilter struct {
	Search        string
	Status        Status
	IsConsignment *bool
	Month         int
	Year          int
}

func (f ListFilter) apply(q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"LOWER(make) LIKE ? OR LOWER(model) LIKE ? OR LOWER(vin) LIKE ? OR LOWER(number) LIKE ?",
			like, like, like, like,
		)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IsConsignment != nil {
		q = q.Where("is_consignment = ?", *f.IsConsignment)
	}
	if f.Month > 0 && f.Year > 0 {
		// purchase_date 按月份过滤（sqlite/mysql 均支持 strftime/EXTRACT 之外的通用写法）
		start := fmt.Sprintf("%04d-%02d-01", f.Year, f.Month)
		endYear, endMonth := f.Year, f.Month+1
		if endMonth > 12 {
			endYear, endMonth = f.Year+1, 1
		}
		end := fmt.Sprintf("%04d-%02d-01", endYear, endMonth)
		q = q.Where("purchase_date >= ? AND purchase_date < ?", start, end)
	}
	return q
}

func (r *Repo) Create(ctx context.Context, c *Car) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(c).Error
}

func (r *Repo) Update(ctx context.Context, c *Car) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(c).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Car, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Car
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) FindByVIN(ctx context.Context, vin string) (*Car, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Car
	if err := db.Where("vin = ?", vin).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ?", id).Delete(&Car{})
	return res.RowsAffected, res.Error
}

// DeleteAll 清空整个库存，返回删除条数。
func (r *Repo) DeleteAll(ctx context.Context) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	res := db.Where("1 = 1").Delete(&Car{})
	return res.RowsAffected, res.Error
}

// List 按过滤条件返回全部匹配车辆（库存体量小，不分页）。
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Car, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	q := f.apply(db.Model(&Car{}))
	var cars []Car
	if err := q.Order("created_at DESC").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

// Stats 汇总统计；present_percentage 保留 1 位小数，空库存为 0。
func (r *Repo) Stats(ctx context.Context, month, year int) (*Stats, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	base := func() *gorm.DB {
		return ListFilter{Month: month, Year: year}.apply(db.Model(&Car{}))
	}

	var s Stats
	if err := base().Count(&s.TotalCars).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", StatusPresent).Count(&s.PresentCars).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", StatusAbsent).Count(&s.AbsentCars).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_consignment = ?", true).Count(&s.ConsignmentCars).Error; err != nil {
		return nil, err
	}
	s.RegularCars = s.TotalCars - s.ConsignmentCars

	if s.TotalCars > 0 {
		s.PresentPercentage = math.Round(float64(s.PresentCars)/float64(s.TotalCars)*1000) / 10
	}
	return &s, nil
}

// AvailableMonths 返回有入库日期的月份列表（新到旧）。
func (r *Repo) AvailableMonths(ctx context.Context) ([]MonthYear, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	var cars []Car
	if err := db.Model(&Car{}).Where("purchase_date IS NOT NULL").
		Order("purchase_date DESC").Find(&cars).Error; err != nil {
		return nil, err
	}

	seen := make(map[MonthYear]struct{})
	months := make([]MonthYear, 0)
	for _, c := range cars {
		if c.PurchaseDate == nil {
			continue
		}
		my := MonthYear{Month: int(c.PurchaseDate.Month()), Year: c.PurchaseDate.Year()}
		if _, ok := seen[my]; ok {
			continue
		}
		seen[my] = struct{}{}
		months = append(months, my)
	}
	return months, nil
}
