package httpapi

import (
	"net/http"
	"strings"

	"github.com/LotTrace/LotTrace/internal/archive"
	"github.com/LotTrace/LotTrace/internal/car"
	"github.com/LotTrace/LotTrace/internal/common/config"
	"github.com/LotTrace/LotTrace/internal/common/logger"
	"github.com/LotTrace/LotTrace/internal/user"
)

// Server 持有各领域 service，对外只暴露一个 http.Handler。
type Server struct {
	cars     *car.Service
	archives *archive.Service
	users    *user.Service
	authCfg  config.AuthConfig
	log      logger.Logger
}

func NewServer(cars *car.Service, archives *archive.Service, users *user.Service, authCfg config.AuthConfig, log logger.Logger) *Server {
	return &Server{
		cars:     cars,
		archives: archives,
		users:    users,
		authCfg:  authCfg,
		log:      log,
	}
}

// Handler 组装路由。Go 1.21 的 ServeMux 不支持 method pattern，
// 这里按前缀注册，method 与子路径在 handler 内分发。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/create-user", s.requireAdmin(s.handleCreateUser))
	mux.HandleFunc("/api/auth/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("/api/auth/users/", s.requireAdmin(s.handleDeleteUser))

	mux.HandleFunc("/api/cars", s.handleCars)
	mux.HandleFunc("/api/cars/", s.handleCarSubroutes)

	mux.HandleFunc("/api/archives", s.handleArchives)
	mux.HandleFunc("/api/archives/create-monthly", s.requireAdmin(s.handleCreateArchive))
	mux.HandleFunc("/api/archives/", s.handleArchiveByID)

	return RequireAuth(s.authCfg, s.log)(mux)
}

// handleCarSubroutes 分发 /api/cars/ 下的子路径：
// 固定子路径（stats/summary、available-months、import-csv）优先，
// 其余按 /api/cars/{id} 与 /api/cars/{id}/status 处理。
func (s *Server) handleCarSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/cars/")
	switch rest {
	case "stats/summary":
		s.handleCarStats(w, r)
		return
	case "available-months":
		s.handleAvailableMonths(w, r)
		return
	case "import-csv":
		s.handleImportCSV(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/status"); ok && id != "" && !strings.Contains(id, "/") {
		s.handleCarStatus(w, r, id)
		return
	}
	if rest != "" && !strings.Contains(rest, "/") {
		s.handleCarByID(w, r, rest)
		return
	}
	writeDetail(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter) {
	writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
}
