package car

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError 表示调用方输入非法（传输层应映射为 400）。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Service 封装车辆领域的核心用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// CreateCarInput 新建车辆的入参（可作为传输层 DTO 的基础）。
type CreateCarInput struct {
	Make          string
	Model         string
	Number        string
	VIN           string
	PurchaseDate  *time.Time
	ImageURL      string
	IsConsignment bool
}

func (s *Service) CreateCar(ctx context.Context, in CreateCarInput) (*Car, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if strings.TrimSpace(in.Make) == "" {
		return nil, invalidf("make required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return nil, invalidf("model required")
	}

	// 新建车辆默认不在场，无凭证照片
	c := &Car{
		ID:            uuid.NewString(),
		Make:          strings.TrimSpace(in.Make),
		Model:         strings.TrimSpace(in.Model),
		Number:        strings.TrimSpace(in.Number),
		VIN:           strings.TrimSpace(in.VIN),
		PurchaseDate:  in.PurchaseDate,
		ImageURL:      strings.TrimSpace(in.ImageURL),
		Status:        StatusAbsent,
		IsConsignment: in.IsConsignment,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCar 编辑身份字段；状态与凭证照片只能走 SetStatus，不在此处修改。
func (s *Service) UpdateCar(ctx context.Context, id string, in CreateCarInput) (*Car, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidf("id required")
	}
	if strings.TrimSpace(in.Make) == "" {
		return nil, invalidf("make required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return nil, invalidf("model required")
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Make = strings.TrimSpace(in.Make)
	c.Model = strings.TrimSpace(in.Model)
	c.Number = strings.TrimSpace(in.Number)
	c.VIN = strings.TrimSpace(in.VIN)
	c.PurchaseDate = in.PurchaseDate
	c.ImageURL = strings.TrimSpace(in.ImageURL)
	c.IsConsignment = in.IsConsignment

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus 在场状态流转规则：
// - absent：任何状态下都允许，不接受照片负载，并清空已有凭证
// - present：必须同时携带两张凭证照片（base64，无 data-URI 前缀）
func (s *Service) SetStatus(ctx context.Context, id string, to Status, carPhoto, vinPhoto string) (*Car, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidf("id required")
	}
	if !to.Valid() {
		return nil, invalidf("invalid status: %s", to)
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch to {
	case StatusAbsent:
		if carPhoto != "" || vinPhoto != "" {
			return nil, invalidf("photo payload not allowed when marking absent")
		}
		c.Status = StatusAbsent
		c.CarPhoto = ""
		c.VinPhoto = ""
	case StatusPresent:
		if carPhoto == "" || vinPhoto == "" {
			return nil, invalidf("car_photo and vin_photo are both required to mark present")
		}
		c.Status = StatusPresent
		c.CarPhoto = carPhoto
		c.VinPhoto = vinPhoto
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCar(ctx context.Context, id string) (*Car, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidf("id required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListCars(ctx context.Context, f ListFilter) ([]Car, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, f)
}

func (s *Service) DeleteCar(ctx context.Context, id string) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("service not initialized")
	}
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

func (s *Service) DeleteAllCars(ctx context.Context) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("service not initialized")
	}
	return s.repo.DeleteAll(ctx)
}

func (s *Service) Stats(ctx context.Context, month, year int) (*Stats, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.Stats(ctx, month, year)
}

func (s *Service) AvailableMonths(ctx context.Context) ([]MonthYear, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.AvailableMonths(ctx)
}
