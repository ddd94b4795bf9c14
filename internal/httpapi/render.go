package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LotTrace/LotTrace/internal/archive"
	"github.com/LotTrace/LotTrace/internal/car"
	"github.com/LotTrace/LotTrace/internal/user"
	"gorm.io/gorm"
)

// errorBody 错误响应统一为 {"detail": "..."}，客户端直接展示 detail。
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeError 按错误类别映射状态码：
// 输入非法 -> 400，凭证错误 -> 401，记录不存在 -> 404，其余 -> 500。
func writeError(w http.ResponseWriter, err error) {
	var carInvalid *car.ValidationError
	var archiveInvalid *archive.ValidationError
	var userInvalid *user.ValidationError

	switch {
	case errors.As(err, &carInvalid):
		writeDetail(w, http.StatusBadRequest, carInvalid.Msg)
	case errors.As(err, &archiveInvalid):
		writeDetail(w, http.StatusBadRequest, archiveInvalid.Msg)
	case errors.As(err, &userInvalid):
		writeDetail(w, http.StatusBadRequest, userInvalid.Msg)
	case errors.Is(err, user.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
