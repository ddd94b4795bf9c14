package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LotTrace/LotTrace/internal/car"
)

// statusBackend 记录 status PATCH 请求体，可预置失败。
type statusBackend struct {
	srv      *httptest.Server
	calls    atomic.Int64
	lastBody atomic.Value // map[string]interface{}
	fail     atomic.Bool
}

func newStatusBackend(t *testing.T) *statusBackend {
	t.Helper()
	sb := &statusBackend{}
	sb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sb.calls.Add(1)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		sb.lastBody.Store(body)
		if sb.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
			return
		}
		status, _ := body["status"].(string)
		_ = json.NewEncoder(w).Encode(car.Car{ID: "c1", Make: "BMW", Model: "320i", Status: car.Status(status)})
	}))
	t.Cleanup(sb.srv.Close)
	return sb
}

func TestSubmitRequiresBothPhotos(t *testing.T) {
	sb := newStatusBackend(t)
	flow := NewPresenceFlow(NewClient(sb.srv.URL, 5*time.Second), nil)
	ctx := context.Background()

	if _, err := flow.Submit(ctx); err == nil {
		t.Fatalf("expected error before evidence collection started")
	}
	if err := flow.BeginEvidence("c1"); err != nil {
		t.Fatalf("BeginEvidence: %v", err)
	}
	if _, err := flow.Submit(ctx); err == nil {
		t.Fatalf("expected error with no photos")
	}
	if err := flow.AttachCarPhoto("carb64"); err != nil {
		t.Fatalf("AttachCarPhoto: %v", err)
	}
	if flow.CanSubmit() {
		t.Fatalf("one photo must not be submittable")
	}
	if _, err := flow.Submit(ctx); err == nil {
		t.Fatalf("expected error with one photo")
	}
	// 以上都不应产生网络请求
	if sb.calls.Load() != 0 {
		t.Fatalf("expected no requests before both photos, got %d", sb.calls.Load())
	}

	if err := flow.AttachVinPhoto("data:image/jpeg;base64,vinb64"); err != nil {
		t.Fatalf("AttachVinPhoto: %v", err)
	}
	if !flow.CanSubmit() {
		t.Fatalf("expected submittable with both photos")
	}

	c, err := flow.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if c.Status != car.StatusPresent {
		t.Fatalf("expected present, got %s", c.Status)
	}

	body := sb.lastBody.Load().(map[string]interface{})
	if body["car_photo"] != "carb64" {
		t.Fatalf("unexpected car_photo: %v", body["car_photo"])
	}
	// data-URI 前缀在发送前被剥掉
	if body["vin_photo"] != "vinb64" {
		t.Fatalf("expected stripped vin photo, got %v", body["vin_photo"])
	}

	// 成功后回到 Idle，缓冲清空
	if flow.State() != PresenceIdle || flow.CarID() != "" {
		t.Fatalf("expected idle state after success")
	}
}

func TestSubmitFailureKeepsEvidence(t *testing.T) {
	sb := newStatusBackend(t)
	flow := NewPresenceFlow(NewClient(sb.srv.URL, 5*time.Second), nil)
	ctx := context.Background()
	sb.fail.Store(true)

	if err := flow.BeginEvidence("c1"); err != nil {
		t.Fatalf("BeginEvidence: %v", err)
	}
	_ = flow.AttachCarPhoto("carb64")
	_ = flow.AttachVinPhoto("vinb64")

	if _, err := flow.Submit(ctx); err == nil {
		t.Fatalf("expected submit failure")
	}
	// 失败保留缓冲，可直接重试
	if flow.State() != PresenceAwaitingEvidence || !flow.CanSubmit() {
		t.Fatalf("expected evidence retained for retry")
	}

	sb.fail.Store(false)
	if _, err := flow.Submit(ctx); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
}

func TestBeginEvidenceResetsBuffers(t *testing.T) {
	sb := newStatusBackend(t)
	flow := NewPresenceFlow(NewClient(sb.srv.URL, 5*time.Second), nil)

	if err := flow.BeginEvidence("c1"); err != nil {
		t.Fatalf("BeginEvidence: %v", err)
	}
	_ = flow.AttachCarPhoto("carb64")
	_ = flow.AttachVinPhoto("vinb64")

	// 换一辆车重新开始，旧照片作废
	if err := flow.BeginEvidence("c2"); err != nil {
		t.Fatalf("BeginEvidence: %v", err)
	}
	if flow.CanSubmit() {
		t.Fatalf("expected buffers reset on restart")
	}
}

func TestMarkAbsentNeverSendsPhotos(t *testing.T) {
	sb := newStatusBackend(t)
	flow := NewPresenceFlow(NewClient(sb.srv.URL, 5*time.Second), nil)
	ctx := context.Background()

	// 即便正在采集凭证，标记不在场也不携带照片
	if err := flow.BeginEvidence("c1"); err != nil {
		t.Fatalf("BeginEvidence: %v", err)
	}
	_ = flow.AttachCarPhoto("carb64")

	c, err := flow.MarkAbsent(ctx, "c1")
	if err != nil {
		t.Fatalf("MarkAbsent: %v", err)
	}
	if c.Status != car.StatusAbsent {
		t.Fatalf("expected absent, got %s", c.Status)
	}

	body := sb.lastBody.Load().(map[string]interface{})
	if _, ok := body["car_photo"]; ok {
		t.Fatalf("absent request must not contain car_photo: %v", body)
	}
	if _, ok := body["vin_photo"]; ok {
		t.Fatalf("absent request must not contain vin_photo: %v", body)
	}

	// 同一辆车的采集被作废
	if flow.State() != PresenceIdle {
		t.Fatalf("expected collection cancelled after absent mark")
	}
}

func TestCancelDropsEvidence(t *testing.T) {
	sb := newStatusBackend(t)
	flow := NewPresenceFlow(NewClient(sb.srv.URL, 5*time.Second), nil)

	if err := flow.BeginEvidence("c1"); err != nil {
		t.Fatalf("BeginEvidence: %v", err)
	}
	_ = flow.AttachCarPhoto("carb64")
	flow.Cancel()

	if flow.State() != PresenceIdle || flow.CanSubmit() {
		t.Fatalf("expected idle after cancel")
	}
	if sb.calls.Load() != 0 {
		t.Fatalf("cancel must not hit the network")
	}
}

func TestStripAndDisplayDataURI(t *testing.T) {
	if got := StripDataURI("data:image/png;base64,abc"); got != "abc" {
		t.Fatalf("unexpected strip: %q", got)
	}
	if got := StripDataURI("abc"); got != "abc" {
		t.Fatalf("plain base64 must pass through: %q", got)
	}
	if got := DisplayDataURI("abc"); got != "data:image/jpeg;base64,abc" {
		t.Fatalf("unexpected display uri: %q", got)
	}
	if got := DisplayDataURI(""); got != "" {
		t.Fatalf("empty photo must stay empty, got %q", got)
	}
	if got := DisplayDataURI("data:image/png;base64,abc"); got != "data:image/png;base64,abc" {
		t.Fatalf("existing prefix must be kept: %q", got)
	}
}
