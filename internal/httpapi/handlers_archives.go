package httpapi

import (
	"net/http"
	"strings"
)

// handleArchives 处理 /api/archives：GET 列表，DELETE 清空（admin）。
func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.archives.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodDelete:
		s.requireAdmin(s.deleteAllArchives)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) deleteAllArchives(w http.ResponseWriter, r *http.Request) {
	n, err := s.archives.DeleteAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted_count": n})
}

// handleCreateArchive 处理 POST /api/archives/create-monthly（admin）。
// 快照当前全部库存，月份/年份只是归档的标签。
func (s *Server) handleCreateArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		ArchiveName string `json:"archive_name"`
		Month       int    `json:"month"`
		Year        int    `json:"year"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := s.archives.CreateMonthly(r.Context(), body.ArchiveName, body.Month, body.Year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleArchiveByID 处理 /api/archives/{id}：GET 详情，DELETE 删除（admin）。
func (s *Server) handleArchiveByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/archives/")
	if id == "" || strings.Contains(id, "/") {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a, err := s.archives.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	case http.MethodDelete:
		s.requireAdmin(func(w http.ResponseWriter, r *http.Request) {
			if _, err := s.archives.Delete(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "archive deleted"})
		})(w, r)
	default:
		methodNotAllowed(w)
	}
}
