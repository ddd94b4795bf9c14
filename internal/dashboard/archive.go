package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LotTrace/LotTrace/internal/archive"
	"github.com/LotTrace/LotTrace/internal/common/logger"
)

// DeleteConfirmPhrase 批量/归档删除前必须逐字输入的确认词。
const DeleteConfirmPhrase = "LÖSCHEN"

// ErrConfirmMismatch 确认词输入不符，删除被中止，不会发任何请求。
var ErrConfirmMismatch = errors.New("confirmation phrase does not match")

// ArchiveFlow 月度归档工作流：创建快照、列表、删除（带确认词门禁）。
type ArchiveFlow struct {
	client  *Client
	queries *QueryService
	log     logger.Logger
}

func NewArchiveFlow(client *Client, queries *QueryService, log logger.Logger) *ArchiveFlow {
	return &ArchiveFlow{client: client, queries: queries, log: log}
}

// List 归档列表（新到旧）。
func (f *ArchiveFlow) List(ctx context.Context) ([]archive.Archive, error) {
	var list []archive.Archive
	if err := f.client.getJSON(ctx, "/api/archives", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get 单个归档详情（含快照车辆数据）。
func (f *ArchiveFlow) Get(ctx context.Context, id string) (*archive.Archive, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("archive id is required")
	}
	var a archive.Archive
	if err := f.client.getJSON(ctx, "/api/archives/"+id, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateMonthly 创建月度快照。名称非空、月份 1-12 在本地先行校验。
// 成功后刷新一次看板（归档列表由调用方重拉）。
func (f *ArchiveFlow) CreateMonthly(ctx context.Context, name string, month, year int) (*archive.Archive, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("archive name is required")
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12")
	}
	if year <= 0 {
		return nil, fmt.Errorf("year must be positive")
	}

	var a archive.Archive
	err := f.client.sendJSON(ctx, http.MethodPost, "/api/archives/create-monthly", map[string]interface{}{
		"archive_name": name,
		"month":        month,
		"year":         year,
	}, &a)
	if err != nil {
		return nil, err
	}
	if f.log != nil {
		f.log.WithFields(map[string]interface{}{
			"archive": a.ArchiveName,
			"cars":    a.TotalCars,
		}).Info("monthly archive created")
	}
	f.refresh(ctx)
	return &a, nil
}

// Delete 删除单个归档。confirmation 必须逐字等于 DeleteConfirmPhrase，
// 否则中止且不发请求。每次删除都要重新输入确认词。
func (f *ArchiveFlow) Delete(ctx context.Context, id, confirmation string) error {
	if confirmation != DeleteConfirmPhrase {
		return ErrConfirmMismatch
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("archive id is required")
	}
	if err := f.client.sendJSON(ctx, http.MethodDelete, "/api/archives/"+id, nil, nil); err != nil {
		return err
	}
	f.refresh(ctx)
	return nil
}

// DeleteAll 清空全部归档，同样受确认词门禁。
func (f *ArchiveFlow) DeleteAll(ctx context.Context, confirmation string) (int64, error) {
	if confirmation != DeleteConfirmPhrase {
		return 0, ErrConfirmMismatch
	}
	var resp struct {
		DeletedCount int64 `json:"deleted_count"`
	}
	if err := f.client.sendJSON(ctx, http.MethodDelete, "/api/archives", nil, &resp); err != nil {
		return 0, err
	}
	f.refresh(ctx)
	return resp.DeletedCount, nil
}

func (f *ArchiveFlow) refresh(ctx context.Context) {
	if f.queries == nil {
		return
	}
	if _, err := f.queries.Refresh(ctx, QueryFilter{}); err != nil && f.log != nil {
		f.log.WithField("error", err.Error()).Warn("refresh after archive change failed")
	}
	if _, err := f.queries.AvailableMonths(ctx); err != nil && f.log != nil {
		f.log.WithField("error", err.Error()).Warn("refresh months after archive change failed")
	}
}
