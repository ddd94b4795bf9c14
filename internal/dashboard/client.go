// Package dashboard 实现库存看板的客户端工作流：
// 会话管理、查询聚合、在场凭证流转、CSV 导入与月度归档。
// 所有网络交互都走这里的 Client，服务端只认 REST/JSON。
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError 服务端返回的业务错误（非 2xx 响应），Detail 来自响应体的 detail 字段。
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d detail=%s", e.Status, e.Detail)
}

// Client 库存服务的 HTTP 客户端。token 为空时不带 Authorization 头。
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient 创建客户端。baseURL 形如 http://127.0.0.1:8080，不带末尾斜杠。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken 设置后续请求携带的 access token。
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// Token 当前使用的 access token（可能为空）。
func (c *Client) Token() string { return c.token }

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do 发送请求并把 2xx 响应体解码到 out（out 为 nil 时丢弃响应体）。
// 非 2xx 响应解析 {"detail": ...} 并返回 *APIError。
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := "request failed"
		var body struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != "" {
			detail = body.Detail
		}
		return &APIError{Status: resp.StatusCode, Detail: detail}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// getJSON GET 请求 + JSON 解码。
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// sendJSON 带 JSON 请求体的请求（POST/PUT/PATCH/DELETE）。
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// uploadFile multipart 上传单个文件字段。
func (c *Client) uploadFile(ctx context.Context, path, fieldName, fileName string, content io.Reader, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(fieldName, fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}
