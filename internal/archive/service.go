package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/LotTrace/LotTrace/internal/car"
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

// Service 封装快照领域的核心用例。快照创建后不可变，只能整体删除。
type Service struct {
	repo    *Repo
	carRepo *car.Repo
}

func NewService(repo *Repo, carRepo *car.Repo) *Service {
	return &Service{repo: repo, carRepo: carRepo}
}

// CreateMonthly 把当前库存整体拷贝为一个命名的月度快照。
func (s *Service) CreateMonthly(ctx context.Context, name string, month, year int) (*Archive, error) {
	if s == nil || s.repo == nil || s.carRepo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("archive_name required")
	}
	if month < 1 || month > 12 {
		return nil, invalidf("month must be between 1 and 12")
	}
	if year <= 0 {
		return nil, invalidf("year required")
	}

	cars, err := s.carRepo.List(ctx, car.ListFilter{})
	if err != nil {
		return nil, err
	}

	a := &Archive{
		ID:          uuid.NewString(),
		ArchiveName: name,
		Month:       month,
		Year:        year,
		TotalCars:   int64(len(cars)),
		CarsData:    cars,
	}
	for _, c := range cars {
		if c.Status == car.StatusPresent {
			a.PresentCars++
		} else {
			a.AbsentCars++
		}
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Archive, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidf("id required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Archive, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("service not initialized")
	}
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("service not initialized")
	}
	return s.repo.DeleteAll(ctx)
}
