package car

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportResult 是一次 CSV 导入的结果报告。
// 行级错误不会中断整批导入，只是被收集返回。
type ImportResult struct {
	Success       bool     `json:"success"`
	ImportedCount int      `json:"imported_count"`
	UpdatedCount  int      `json:"updated_count"`
	Errors        []string `json:"errors"`
	Message       string   `json:"message"`
}

var csvRequiredHeaders = []string{"make", "model"}

var csvDateLayouts = []string{"2006-01-02", "02.01.2006", time.RFC3339}

// skipBOM 跳过 UTF-8 BOM（Excel 导出的 CSV 常见）。
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	peeked, err := br.Peek(3)
	if err == nil && peeked[0] == 0xEF && peeked[1] == 0xBB && peeked[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}

func csvColIndex(header []string, required []string) (map[string]int, error) {
	colIndex := make(map[string]int)
	for i, colName := range header {
		colIndex[strings.ToLower(strings.TrimSpace(colName))] = i
	}
	for _, req := range required {
		if _, ok := colIndex[req]; !ok {
			return nil, fmt.Errorf("missing required header: %s", req)
		}
	}
	return colIndex, nil
}

func csvField(rec []string, colIndex map[string]int, name string) string {
	i, ok := colIndex[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseCSVDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid purchase_date: %q", v)
}

// ImportCSV 逐行导入车辆清单。
// 表头：make,model,number,purchase_date,vin,image_url（顺序不限，大小写不敏感）。
// 已存在相同 VIN 时更新该车辆身份字段，否则新建；新建车辆默认 absent。
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	reader := csv.NewReader(skipBOM(r))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, invalidf("csv file is empty")
	}
	if err != nil {
		return nil, invalidf("failed to read csv header: %v", err)
	}

	colIndex, err := csvColIndex(header, csvRequiredHeaders)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	result := &ImportResult{Errors: []string{}}
	line := 1
	for {
		line++
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		makeName := csvField(rec, colIndex, "make")
		model := csvField(rec, colIndex, "model")
		if makeName == "" || model == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: make and model are required", line))
			continue
		}

		purchaseDate, err := parseCSVDate(csvField(rec, colIndex, "purchase_date"))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		vin := csvField(rec, colIndex, "vin")
		number := csvField(rec, colIndex, "number")
		imageURL := csvField(rec, colIndex, "image_url")

		// VIN 已存在 -> 更新；否则新建
		var existing *Car
		if vin != "" {
			existing, err = s.repo.FindByVIN(ctx, vin)
			if err != nil && err != gorm.ErrRecordNotFound {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
				continue
			}
		}

		if existing != nil {
			existing.Make = makeName
			existing.Model = model
			existing.Number = number
			existing.PurchaseDate = purchaseDate
			existing.ImageURL = imageURL
			if err := s.repo.Update(ctx, existing); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
				continue
			}
			result.UpdatedCount++
			continue
		}

		c := &Car{
			ID:           uuid.NewString(),
			Make:         makeName,
			Model:        model,
			Number:       number,
			VIN:          vin,
			PurchaseDate: purchaseDate,
			ImageURL:     imageURL,
			Status:       StatusAbsent,
		}
		if err := s.repo.Create(ctx, c); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		result.ImportedCount++
	}

	result.Success = true
	total := result.ImportedCount + result.UpdatedCount
	if result.UpdatedCount > 0 {
		result.Message = fmt.Sprintf("%d processed: %d imported, %d updated",
			total, result.ImportedCount, result.UpdatedCount)
	} else {
		result.Message = fmt.Sprintf("%d imported", result.ImportedCount)
	}
	return result, nil
}
