package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SessionUser 登录用户的展示信息。
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin 是否管理员角色。
func (u SessionUser) IsAdmin() bool { return u.Role == "admin" }

// Session 持久化在本地文件中的登录态。
type Session struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

// Authenticated 是否持有 token。不在本地判断过期，由服务端 401 裁决。
func (s Session) Authenticated() bool { return s.AccessToken != "" }

// SessionStore 把 Session 存为 JSON 文件。
// 文件缺失或内容损坏一律视为未登录，不报错。
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load 读取会话。任何读取/解析失败都返回空会话。
func (st *SessionStore) Load() Session {
	if st == nil || st.path == "" {
		return Session{}
	}
	data, err := os.ReadFile(st.path)
	if err != nil {
		return Session{}
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}
	}
	return s
}

// Save 写入会话文件（0600，token 是敏感数据）。
func (st *SessionStore) Save(s Session) error {
	if st == nil || st.path == "" {
		return errors.New("session store path not set")
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(st.path, data, 0o600)
}

// Clear 删除会话文件。文件本就不存在不算错误。
func (st *SessionStore) Clear() error {
	if st == nil || st.path == "" {
		return nil
	}
	err := os.Remove(st.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loginResponse 登录接口的响应体。
type loginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

// Login 用户名/密码登录，成功后写入会话文件并给 Client 装配 token。
func (c *Client) Login(ctx context.Context, store *SessionStore, username, password string) (*Session, error) {
	var resp loginResponse
	err := c.sendJSON(ctx, "POST", "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	s := Session{AccessToken: resp.AccessToken, ExpiresAt: resp.ExpiresAt, User: resp.User}
	c.SetToken(s.AccessToken)
	if store != nil {
		if err := store.Save(s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Logout 清除本地会话。服务端无状态，不需要远端调用。
func (c *Client) Logout(store *SessionStore) error {
	c.SetToken("")
	if store == nil {
		return nil
	}
	return store.Clear()
}

// Resume 从会话文件恢复登录态，返回恢复出的会话。
func (c *Client) Resume(store *SessionStore) Session {
	if store == nil {
		return Session{}
	}
	s := store.Load()
	c.SetToken(s.AccessToken)
	return s
}
