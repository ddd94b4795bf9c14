package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/LotTrace/LotTrace/internal/car"
)

// PresenceState 在场凭证流程的状态。
type PresenceState int

const (
	PresenceIdle             PresenceState = iota // 未在采集
	PresenceAwaitingEvidence                      // 采集中，等待双照片
	PresenceSubmitting                            // 提交中
)

func (s PresenceState) String() string {
	switch s {
	case PresenceIdle:
		return "idle"
	case PresenceAwaitingEvidence:
		return "awaiting_evidence"
	case PresenceSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// statusRequest PATCH /api/cars/{id}/status 的请求体。
type statusRequest struct {
	Status   string `json:"status"`
	CarPhoto string `json:"car_photo,omitempty"`
	VinPhoto string `json:"vin_photo,omitempty"`
}

// PresenceFlow 管理“标记在场”的凭证采集状态机。
// 标记在场必须先后采集车辆照片与 VIN 照片两份凭证；
// 标记不在场随时可做且绝不携带照片。
// queries 不为 nil 时，状态变更成功后刷新一次看板。
type PresenceFlow struct {
	mu       sync.Mutex
	client   *Client
	queries  *QueryService
	state    PresenceState
	carID    string
	carPhoto string // 纯 base64
	vinPhoto string
}

func NewPresenceFlow(client *Client, queries *QueryService) *PresenceFlow {
	return &PresenceFlow{client: client, queries: queries, state: PresenceIdle}
}

// State 当前状态。
func (f *PresenceFlow) State() PresenceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CarID 当前采集对象的车辆 ID（Idle 时为空）。
func (f *PresenceFlow) CarID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carID
}

// BeginEvidence 为指定车辆开启凭证采集。重新开启会丢弃之前的照片缓冲。
func (f *PresenceFlow) BeginEvidence(carID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == PresenceSubmitting {
		return fmt.Errorf("submission in progress")
	}
	if carID == "" {
		return fmt.Errorf("car id is required")
	}
	f.state = PresenceAwaitingEvidence
	f.carID = carID
	f.carPhoto = ""
	f.vinPhoto = ""
	return nil
}

// AttachCarPhoto 填入车辆照片凭证。接受带 data-URI 前缀的输入。
func (f *PresenceFlow) AttachCarPhoto(photo string) error {
	return f.attach(&f.carPhoto, photo)
}

// AttachVinPhoto 填入 VIN 照片凭证。
func (f *PresenceFlow) AttachVinPhoto(photo string) error {
	return f.attach(&f.vinPhoto, photo)
}

func (f *PresenceFlow) attach(slot *string, photo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != PresenceAwaitingEvidence {
		return fmt.Errorf("no evidence collection in progress")
	}
	b64 := StripDataURI(photo)
	if b64 == "" {
		return fmt.Errorf("photo is empty")
	}
	*slot = b64
	return nil
}

// CanSubmit 双照片齐备才允许提交。
func (f *PresenceFlow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == PresenceAwaitingEvidence && f.carPhoto != "" && f.vinPhoto != ""
}

// Cancel 放弃采集，丢弃照片缓冲。
func (f *PresenceFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == PresenceSubmitting {
		return
	}
	f.state = PresenceIdle
	f.carID = ""
	f.carPhoto = ""
	f.vinPhoto = ""
}

// Submit 提交在场标记。只有双照片齐备才会发请求；
// 成功后清空缓冲回到 Idle，失败保留缓冲回到采集态供重试。
func (f *PresenceFlow) Submit(ctx context.Context) (*car.Car, error) {
	f.mu.Lock()
	if f.state != PresenceAwaitingEvidence {
		f.mu.Unlock()
		return nil, fmt.Errorf("no evidence collection in progress")
	}
	if f.carPhoto == "" || f.vinPhoto == "" {
		f.mu.Unlock()
		return nil, fmt.Errorf("both car photo and vin photo are required")
	}
	carID, carPhoto, vinPhoto := f.carID, f.carPhoto, f.vinPhoto
	f.state = PresenceSubmitting
	f.mu.Unlock()

	var updated car.Car
	err := f.client.sendJSON(ctx, http.MethodPatch, "/api/cars/"+carID+"/status", statusRequest{
		Status:   string(car.StatusPresent),
		CarPhoto: carPhoto,
		VinPhoto: vinPhoto,
	}, &updated)

	f.mu.Lock()
	if err != nil {
		f.state = PresenceAwaitingEvidence
		f.mu.Unlock()
		return nil, err
	}
	f.state = PresenceIdle
	f.carID = ""
	f.carPhoto = ""
	f.vinPhoto = ""
	f.mu.Unlock()

	f.refresh(ctx)
	return &updated, nil
}

// MarkAbsent 标记不在场。任何状态下都可调用，不携带任何照片，
// 服务端会清掉已存的凭证照片。
func (f *PresenceFlow) MarkAbsent(ctx context.Context, carID string) (*car.Car, error) {
	if carID == "" {
		return nil, fmt.Errorf("car id is required")
	}
	var updated car.Car
	err := f.client.sendJSON(ctx, http.MethodPatch, "/api/cars/"+carID+"/status", statusRequest{
		Status: string(car.StatusAbsent),
	}, &updated)
	if err != nil {
		return nil, err
	}

	// 正在给同一辆车采集凭证时，不在场标记使采集失效
	f.mu.Lock()
	if f.state == PresenceAwaitingEvidence && f.carID == carID {
		f.state = PresenceIdle
		f.carID = ""
		f.carPhoto = ""
		f.vinPhoto = ""
	}
	f.mu.Unlock()

	f.refresh(ctx)
	return &updated, nil
}

// refresh 状态变更成功后刷新一次列表与统计。
func (f *PresenceFlow) refresh(ctx context.Context) {
	if f.queries == nil {
		return
	}
	_, _ = f.queries.Refresh(ctx, QueryFilter{})
}
