package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/LotTrace/LotTrace/internal/common/auth"
	"github.com/LotTrace/LotTrace/internal/common/config"
	"github.com/LotTrace/LotTrace/internal/common/logger"
)

type authContextKey struct{}

// AuthInfo 从 JWT 中解析出的最小用户信息（放入 ctx，供 handler 使用）。
type AuthInfo struct {
	Subject  string // 用户 ID
	Username string
	Role     string // admin / user
}

// AuthFromContext 从 ctx 中取出鉴权信息。
func AuthFromContext(ctx context.Context) (AuthInfo, bool) {
	v := ctx.Value(authContextKey{})
	if v == nil {
		return AuthInfo{}, false
	}
	ai, ok := v.(AuthInfo)
	return ai, ok
}

// RequireAuth 鉴权 middleware：
// - 从 `Authorization: Bearer <token>` 读取 token
// - 校验 HS256 签名、exp/nbf（jwt/v5 默认校验）以及可选的 iss/aud
// - 将解析结果写入 ctx
// PublicPaths 中的路径直接放行。
func RequireAuth(cfg config.AuthConfig, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isPublicPath(cfg.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				if log != nil {
					log.Warn("auth enabled but jwt_secret is empty")
				}
				writeDetail(w, http.StatusUnauthorized, "auth not configured")
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				writeDetail(w, http.StatusUnauthorized, "missing authorization")
				return
			}
			tokenStr := raw
			if strings.HasPrefix(strings.ToLower(tokenStr), "bearer ") {
				tokenStr = strings.TrimSpace(tokenStr[len("bearer "):])
			}
			if tokenStr == "" {
				writeDetail(w, http.StatusUnauthorized, "invalid authorization")
				return
			}

			claims, err := auth.ParseAccessToken(cfg, tokenStr)
			if err != nil {
				writeDetail(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey{}, AuthInfo{
				Subject:  claims.Subject,
				Username: claims.Username,
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin 包装单个 handler，要求 admin 角色。
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authCfg.Enabled {
			next(w, r)
			return
		}
		ai, ok := AuthFromContext(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "missing auth context")
			return
		}
		if !strings.EqualFold(ai.Role, "admin") {
			writeDetail(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

func isPublicPath(public []string, path string) bool {
	if path == "" || len(public) == 0 {
		return false
	}
	for _, p := range public {
		if strings.TrimSpace(p) == path {
			return true
		}
	}
	return false
}
