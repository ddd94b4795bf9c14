package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LotTrace/LotTrace/internal/common/auth"
	"github.com/LotTrace/LotTrace/internal/common/config"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials 用户名或密码错误（传输层映射为 401）。
var ErrInvalidCredentials = errors.New("invalid username or password")

// ValidationError 表示调用方输入非法（传输层应映射为 400）。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

const minPasswordLen = 6

// Service 封装账号领域用例：登录签发 token、管理员建号/销号。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
}

func NewService(repo *Repo, authCfg config.AuthConfig) *Service {
	return &Service{repo: repo, authCfg: authCfg}
}

// LoginResult 登录成功后的返回：access token + 用户信息。
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

// Authenticate 校验用户名/密码并签发 JWT。
// 用户不存在和密码错误返回同一个错误，不泄露账号是否存在。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalidf("username and password required")
	}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	ttl := time.Duration(s.authCfg.TokenTTLHoursOrDefault()) * time.Hour
	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.Username, string(u.Role), ttl)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

// CreateUser 创建账号（仅管理员通过传输层调用；权限检查在传输层）。
func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalidf("username and password required")
	}
	if len(password) < minPasswordLen {
		return nil, invalidf("password must be at least %d characters", minPasswordLen)
	}
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, invalidf("invalid role: %s", role)
	}

	// check existence
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, invalidf("username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser 删除账号；不允许删除自己，避免锁死最后一个管理员会话。
func (s *Service) DeleteUser(ctx context.Context, id, callerID string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidf("id required")
	}
	if id == callerID {
		return invalidf("cannot delete your own account")
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx)
}

// Bootstrap 用户表为空时创建默认管理员，保证系统首次启动可登录。
func (s *Service) Bootstrap(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	username := s.authCfg.BootstrapAdminUser
	password := s.authCfg.BootstrapAdminPassword
	if username == "" || password == "" {
		return nil
	}
	_, err = s.CreateUser(ctx, username, password, RoleAdmin)
	return err
}
