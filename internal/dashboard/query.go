package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LotTrace/LotTrace/internal/car"
	"github.com/LotTrace/LotTrace/internal/common/logger"
	"github.com/LotTrace/LotTrace/internal/common/middleware"
)

// QueryFilter 列表查询条件。空值与 "all" 不进入请求参数。
type QueryFilter struct {
	Search      string
	Status      string // "", "all", "present", "absent"
	Consignment string // "", "all", "true", "false"
	Month       int    // 与 Year 必须成对
	Year        int
}

// params 把过滤条件编码为查询参数。Month/Year 只给一个时报错，不发请求。
func (f QueryFilter) params() (url.Values, error) {
	q := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if v := strings.ToLower(strings.TrimSpace(f.Status)); v != "" && v != "all" {
		q.Set("status", v)
	}
	if v := strings.ToLower(strings.TrimSpace(f.Consignment)); v != "" && v != "all" {
		q.Set("is_consignment", v)
	}
	if (f.Month > 0) != (f.Year > 0) {
		return nil, fmt.Errorf("month and year must be selected together")
	}
	if f.Month > 0 {
		q.Set("month", strconv.Itoa(f.Month))
		q.Set("year", strconv.Itoa(f.Year))
	}
	return q, nil
}

// Overview 列表 + 统计的聚合结果。Stats 为 nil 表示统计暂不可用。
type Overview struct {
	Cars  []car.Car
	Stats *car.Stats
}

// QueryService 看板的读路径：列表与统计并发拉取。
// 统计接口故障不应拖垮整个看板，所以挂了熔断器，失败只记日志。
type QueryService struct {
	client  *Client
	log     logger.Logger
	breaker *middleware.CircuitBreaker
}

func NewQueryService(client *Client, log logger.Logger) *QueryService {
	return &QueryService{
		client:  client,
		log:     log,
		breaker: middleware.NewCircuitBreaker("car-stats", 5, 30*time.Second),
	}
}

// ListCars 拉取过滤后的车辆列表。
func (qs *QueryService) ListCars(ctx context.Context, f QueryFilter) ([]car.Car, error) {
	q, err := f.params()
	if err != nil {
		return nil, err
	}
	var cars []car.Car
	if err := qs.client.getJSON(ctx, "/api/cars", q, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// Stats 拉取统计汇总。month/year 均为 0 时统计全量。
func (qs *QueryService) Stats(ctx context.Context, month, year int) (*car.Stats, error) {
	q := url.Values{}
	if (month > 0) != (year > 0) {
		return nil, fmt.Errorf("month and year must be selected together")
	}
	if month > 0 {
		q.Set("month", strconv.Itoa(month))
		q.Set("year", strconv.Itoa(year))
	}
	var stats car.Stats
	if err := qs.client.getJSON(ctx, "/api/cars/stats/summary", q, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Refresh 并发拉取列表与统计，两者都返回后才算加载完成。
// 列表失败整体失败；统计失败走熔断并只记日志，看板继续用列表数据渲染。
func (qs *QueryService) Refresh(ctx context.Context, f QueryFilter) (*Overview, error) {
	// 参数错误在发请求前拦截
	if _, err := f.params(); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		cars     []car.Car
		listErr  error
		stats    *car.Stats
		statsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		cars, listErr = qs.ListCars(ctx, f)
	}()
	go func() {
		defer wg.Done()
		statsErr = qs.breaker.Call(ctx, func() error {
			var err error
			stats, err = qs.Stats(ctx, f.Month, f.Year)
			return err
		})
	}()
	wg.Wait()

	if listErr != nil {
		return nil, listErr
	}
	if statsErr != nil {
		if qs.log != nil {
			qs.log.WithField("error", statsErr.Error()).Warn("stats unavailable")
		}
		stats = nil
	}
	return &Overview{Cars: cars, Stats: stats}, nil
}

// AvailableMonths 拉取有入库记录的月份列表（新到旧）。
func (qs *QueryService) AvailableMonths(ctx context.Context) ([]car.MonthYear, error) {
	var months []car.MonthYear
	if err := qs.client.getJSON(ctx, "/api/cars/available-months", nil, &months); err != nil {
		return nil, err
	}
	return months, nil
}
