package car

import "time"

// Status 车辆在场状态枚举（持久化为字符串）。
type Status string

const (
	StatusPresent Status = "present" // 在场（需要双照片凭证）
	StatusAbsent  Status = "absent"  // 不在场（无需凭证）
)

// Valid 检查是否是已知状态值。
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Car 是 cars 表的 GORM 模型。
// 凭证照片仅在 status=present 时有意义，存储为去掉 data-URI 前缀的 base64 文本。
type Car struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Make          string     `gorm:"size:64;not null" json:"make"`
	Model         string     `gorm:"size:64;not null" json:"model"`
	Number        string     `gorm:"size:32;index" json:"number"` // 内部编号/车牌
	VIN           string     `gorm:"size:64;index" json:"vin"`
	PurchaseDate  *time.Time `json:"purchase_date"`
	ImageURL      string     `gorm:"size:512" json:"image_url"`
	Status        Status     `gorm:"type:varchar(16);index;not null" json:"status"`
	IsConsignment bool       `gorm:"index;not null;default:false" json:"is_consignment"`
	CarPhoto      string     `gorm:"type:text" json:"car_photo,omitempty"` // 在场凭证：车辆照片
	VinPhoto      string     `gorm:"type:text" json:"vin_photo,omitempty"` // 在场凭证：VIN 照片
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayImage 展示图片：在场且有凭证照片时优先用凭证照片，否则用存储的图片 URL。
func (c Car) DisplayImage() string {
	if c.Status == StatusPresent && c.CarPhoto != "" {
		return "data:image/jpeg;base64," + c.CarPhoto
	}
	return c.ImageURL
}

// Stats 库存汇总统计。
type Stats struct {
	TotalCars         int64   `json:"total_cars"`
	PresentCars       int64   `json:"present_cars"`
	AbsentCars        int64   `json:"absent_cars"`
	PresentPercentage float64 `json:"present_percentage"`
	RegularCars       int64   `json:"regular_cars"`
	ConsignmentCars   int64   `json:"consignment_cars"`
}

// MonthYear 有车辆入库记录的月份。
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}
