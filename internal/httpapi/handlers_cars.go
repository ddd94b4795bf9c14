package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LotTrace/LotTrace/internal/car"
)

// carPayload 创建/更新车辆的请求体。purchase_date 接受 "2006-01-02" 或 RFC3339。
type carPayload struct {
	Make          string `json:"make"`
	Model         string `json:"model"`
	Number        string `json:"number"`
	VIN           string `json:"vin"`
	PurchaseDate  string `json:"purchase_date"`
	ImageURL      string `json:"image_url"`
	IsConsignment bool   `json:"is_consignment"`
}

func (p carPayload) toInput() (car.CreateCarInput, error) {
	in := car.CreateCarInput{
		Make:          p.Make,
		Model:         p.Model,
		Number:        p.Number,
		VIN:           p.VIN,
		ImageURL:      p.ImageURL,
		IsConsignment: p.IsConsignment,
	}
	if v := strings.TrimSpace(p.PurchaseDate); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return in, err
		}
		in.PurchaseDate = t
	}
	return in, nil
}

func parseDate(v string) (*time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, &badRequestError{msg: "invalid purchase_date"}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// parseMonthYear 读取 month/year 查询参数，要求成对出现。
func parseMonthYear(r *http.Request) (int, int, error) {
	ms := strings.TrimSpace(r.URL.Query().Get("month"))
	ys := strings.TrimSpace(r.URL.Query().Get("year"))
	if ms == "" && ys == "" {
		return 0, 0, nil
	}
	if ms == "" || ys == "" {
		return 0, 0, &badRequestError{msg: "month and year must be provided together"}
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, &badRequestError{msg: "invalid month"}
	}
	year, err := strconv.Atoi(ys)
	if err != nil || year <= 0 {
		return 0, 0, &badRequestError{msg: "invalid year"}
	}
	return month, year, nil
}

// handleCars 处理 /api/cars：GET 列表，POST 新建，DELETE 清空（admin）。
func (s *Server) handleCars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCars(w, r)
	case http.MethodPost:
		s.createCar(w, r)
	case http.MethodDelete:
		s.requireAdmin(s.deleteAllCars)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := car.ListFilter{Search: q.Get("search")}

	// status/is_consignment 为 "all" 或空时不过滤
	if v := strings.TrimSpace(q.Get("status")); v != "" && !strings.EqualFold(v, "all") {
		st := car.Status(strings.ToLower(v))
		if !st.Valid() {
			writeDetail(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		f.Status = st
	}
	if v := strings.TrimSpace(q.Get("is_consignment")); v != "" && !strings.EqualFold(v, "all") {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid is_consignment filter")
			return
		}
		f.IsConsignment = &b
	}
	month, year, err := parseMonthYear(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Month, f.Year = month, year

	cars, err := s.cars.ListCars(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *Server) createCar(w http.ResponseWriter, r *http.Request) {
	var p carPayload
	if err := decodeJSON(r, &p); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := p.toInput()
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.cars.CreateCar(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) deleteAllCars(w http.ResponseWriter, r *http.Request) {
	n, err := s.cars.DeleteAllCars(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted_count": n})
}

// handleCarByID 处理 /api/cars/{id}：GET 详情，PUT 更新，DELETE 删除。
func (s *Server) handleCarByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.cars.GetCar(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var p carPayload
		if err := decodeJSON(r, &p); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in, err := p.toInput()
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := s.cars.UpdateCar(r.Context(), id, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if _, err := s.cars.DeleteCar(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "car deleted"})
	default:
		methodNotAllowed(w)
	}
}

// handleCarStatus 处理 PATCH /api/cars/{id}/status。
// 置为 present 必须同时携带 car_photo 与 vin_photo；置为 absent 不得携带照片。
func (s *Server) handleCarStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Status   string `json:"status"`
		CarPhoto string `json:"car_photo"`
		VinPhoto string `json:"vin_photo"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := car.Status(strings.ToLower(strings.TrimSpace(body.Status)))
	c, err := s.cars.SetStatus(r.Context(), id, st, body.CarPhoto, body.VinPhoto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCarStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	month, year, err := parseMonthYear(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := s.cars.Stats(r.Context(), month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAvailableMonths(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	months, err := s.cars.AvailableMonths(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

// maxCSVSize 上传 CSV 的大小上限（5 MiB），与客户端预检一致。
const maxCSVSize = 5 * 1024 * 1024

// handleImportCSV 处理 POST /api/cars/import-csv（multipart 字段名 file）。
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeDetail(w, http.StatusBadRequest, "only .csv files are supported")
		return
	}
	if header.Size > maxCSVSize {
		writeDetail(w, http.StatusBadRequest, "file too large (max 5 MB)")
		return
	}

	result, err := s.cars.ImportCSV(r.Context(), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
