package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LotTrace/LotTrace/internal/car"
	"github.com/LotTrace/LotTrace/internal/common/logger"
)

// CSV 导入的前置校验与超时约束。
const (
	maxCSVImportSize = 5 * 1024 * 1024 // 5 MiB
	csvImportTimeout = 30 * time.Second
)

// 导入前置校验错误。命中任何一个都不会发网络请求。
var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrNotCSVFile     = errors.New("only .csv files are supported")
	ErrFileTooLarge   = errors.New("file too large (max 5 MB)")
	ErrImportTimeout  = errors.New("import timed out, please try again")
)

// ImportOutcome 导入完成后的展示结果。
// Warnings 来自服务端逐行错误：整体成功时它们只是警告，不是失败。
type ImportOutcome struct {
	Message       string
	ImportedCount int
	UpdatedCount  int
	Warnings      []string
}

// CSVImportFlow 管理 CSV 批量导入：选文件、前置校验、上传、完成后刷新看板。
type CSVImportFlow struct {
	mu            sync.Mutex
	client        *Client
	queries       *QueryService
	log           logger.Logger
	filePath      string
	uploadTimeout time.Duration
}

func NewCSVImportFlow(client *Client, queries *QueryService, log logger.Logger) *CSVImportFlow {
	return &CSVImportFlow{client: client, queries: queries, log: log, uploadTimeout: csvImportTimeout}
}

// SelectFile 记录待导入的文件路径。扩展名校验推迟到 Import。
func (f *CSVImportFlow) SelectFile(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filePath = strings.TrimSpace(path)
}

// SelectedFile 当前选中的文件（为空表示未选择）。
func (f *CSVImportFlow) SelectedFile() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filePath
}

// precheck 按固定顺序做前置校验：已选文件 -> .csv 扩展名 -> 大小上限。
func (f *CSVImportFlow) precheck(path string) error {
	if path == "" {
		return ErrNoFileSelected
	}
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return ErrNotCSVFile
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if info.Size() > maxCSVImportSize {
		return ErrFileTooLarge
	}
	return nil
}

// Import 上传选中的 CSV 并整理结果。
// 成功后清掉已选文件并刷新一次列表与统计；失败保留文件供重试。
// 超时、服务端校验失败（400）、服务端内部错误（500）给出不同的错误信息。
func (f *CSVImportFlow) Import(ctx context.Context, filter QueryFilter) (*ImportOutcome, error) {
	f.mu.Lock()
	path := f.filePath
	f.mu.Unlock()

	if err := f.precheck(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	// 上传单独限时，成功后的刷新走调用方的 ctx
	uploadCtx, cancel := context.WithTimeout(ctx, f.uploadTimeout)
	defer cancel()

	var result car.ImportResult
	err = f.client.uploadFile(uploadCtx, "/api/cars/import-csv", "file", filepath.Base(path), file, &result)
	if err != nil {
		return nil, f.classifyError(err)
	}
	if !result.Success {
		detail := result.Message
		if detail == "" {
			detail = "import failed"
		}
		return nil, errors.New(detail)
	}

	outcome := &ImportOutcome{
		Message:       result.Message,
		ImportedCount: result.ImportedCount,
		UpdatedCount:  result.UpdatedCount,
		Warnings:      result.Errors,
	}
	if len(outcome.Warnings) > 0 && f.log != nil {
		f.log.WithField("rows", len(outcome.Warnings)).Warn("csv import finished with row errors")
	}

	f.mu.Lock()
	f.filePath = ""
	f.mu.Unlock()

	// 导入成功后列表与统计各刷新一次
	if f.queries != nil {
		if _, err := f.queries.Refresh(ctx, filter); err != nil && f.log != nil {
			f.log.WithField("error", err.Error()).Warn("refresh after import failed")
		}
	}
	return outcome, nil
}

// classifyError 区分超时、服务端校验失败与服务端故障。
func (f *CSVImportFlow) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrImportTimeout
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusBadRequest {
			return errors.New(apiErr.Detail)
		}
		if apiErr.Status >= http.StatusInternalServerError {
			return fmt.Errorf("server error during import: %s", apiErr.Detail)
		}
		return err
	}
	return fmt.Errorf("network error during import: %w", err)
}
