package httpapi

import (
	"net/http"
	"strings"

	"github.com/LotTrace/LotTrace/internal/user"
)

// handleLogin 处理 POST /api/auth/login（公开路径）。
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateUser 处理 POST /api/auth/create-user（admin）。
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.users.CreateUser(r.Context(), body.Username, body.Password, user.Role(strings.ToLower(strings.TrimSpace(body.Role))))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleListUsers 处理 GET /api/auth/users（admin）。
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleDeleteUser 处理 DELETE /api/auth/users/{id}（admin）。
// 禁止删除当前登录账号本身。
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/auth/users/")
	if id == "" || strings.Contains(id, "/") {
		writeDetail(w, http.StatusNotFound, "not found")
		return
	}
	callerID := ""
	if ai, ok := AuthFromContext(r.Context()); ok {
		callerID = ai.Subject
	}
	if err := s.users.DeleteUser(r.Context(), id, callerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
