package archive

import (
	"math"
	"time"

	"github.com/LotTrace/LotTrace/internal/car"
)

// Archive 是 archives 表的 GORM 模型：某个月份库存的不可变快照。
// cars_data 内嵌快照时刻的全部车辆记录（含凭证照片），以 JSON 存储。
type Archive struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ArchiveName string    `gorm:"size:128;not null" json:"archive_name"`
	Month       int       `gorm:"not null" json:"month"` // 1-12
	Year        int       `gorm:"not null" json:"year"`
	ArchivedAt  time.Time `gorm:"autoCreateTime" json:"archived_at"`
	TotalCars   int64     `gorm:"not null" json:"total_cars"`
	PresentCars int64     `gorm:"not null" json:"present_cars"`
	AbsentCars  int64     `gorm:"not null" json:"absent_cars"`
	CarsData    []car.Car `gorm:"serializer:json" json:"cars_data"`
}

// PresentPercentage 在场比例，保留 1 位小数；空快照为 0。
func (a Archive) PresentPercentage() float64 {
	if a.TotalCars == 0 {
		return 0
	}
	return math.Round(float64(a.PresentCars)/float64(a.TotalCars)*1000) / 10
}
