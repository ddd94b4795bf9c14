package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/LotTrace/LotTrace/internal/car"
)

// CarInput 新建/更新车辆的请求体。purchase_date 使用 "2006-01-02"。
type CarInput struct {
	Make          string `json:"make"`
	Model         string `json:"model"`
	Number        string `json:"number,omitempty"`
	VIN           string `json:"vin,omitempty"`
	PurchaseDate  string `json:"purchase_date,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	IsConsignment bool   `json:"is_consignment"`
}

// CreateCar 新建车辆。新车总是以不在场状态入库。
func (c *Client) CreateCar(ctx context.Context, in CarInput) (*car.Car, error) {
	var created car.Car
	if err := c.sendJSON(ctx, http.MethodPost, "/api/cars", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCar 更新车辆的标识字段。状态与凭证照片不经过此接口。
func (c *Client) UpdateCar(ctx context.Context, id string, in CarInput) (*car.Car, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("car id is required")
	}
	var updated car.Car
	if err := c.sendJSON(ctx, http.MethodPut, "/api/cars/"+id, in, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetCar 车辆详情。
func (c *Client) GetCar(ctx context.Context, id string) (*car.Car, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("car id is required")
	}
	var found car.Car
	if err := c.getJSON(ctx, "/api/cars/"+id, nil, &found); err != nil {
		return nil, err
	}
	return &found, nil
}

// DeleteCar 删除单辆车。
func (c *Client) DeleteCar(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("car id is required")
	}
	return c.sendJSON(ctx, http.MethodDelete, "/api/cars/"+id, nil, nil)
}

// DeleteAllCars 清空库存（admin），返回删除条数。
// confirmation 必须逐字等于 DeleteConfirmPhrase，否则中止且不发请求。
func (c *Client) DeleteAllCars(ctx context.Context, confirmation string) (int64, error) {
	if confirmation != DeleteConfirmPhrase {
		return 0, ErrConfirmMismatch
	}
	var resp struct {
		DeletedCount int64 `json:"deleted_count"`
	}
	if err := c.sendJSON(ctx, http.MethodDelete, "/api/cars", nil, &resp); err != nil {
		return 0, err
	}
	return resp.DeletedCount, nil
}

// CreateUser 管理员开设账号。role 为空时服务端默认 user。
func (c *Client) CreateUser(ctx context.Context, username, password, role string) (*SessionUser, error) {
	var created SessionUser
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/create-user", map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListUsers 账号列表（admin）。
func (c *Client) ListUsers(ctx context.Context) ([]SessionUser, error) {
	var list []SessionUser
	if err := c.getJSON(ctx, "/api/auth/users", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteUser 注销账号（admin）。服务端禁止删除自己。
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("user id is required")
	}
	return c.sendJSON(ctx, http.MethodDelete, "/api/auth/users/"+id, nil, nil)
}
