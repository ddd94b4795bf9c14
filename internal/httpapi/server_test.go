package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LotTrace/LotTrace/internal/archive"
	"github.com/LotTrace/LotTrace/internal/car"
	"github.com/LotTrace/LotTrace/internal/common/config"
	"github.com/LotTrace/LotTrace/internal/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:                true,
		JWTSecret:              "test-secret",
		Issuer:                 "lottrace-test",
		TokenTTLHours:          1,
		PublicPaths:            []string{"/api/auth/login", "/healthz"},
		BootstrapAdminUser:     "admin",
		BootstrapAdminPassword: "admin123",
	}
}

// newTestServer 组装完整服务端并预置 admin 与普通账号。
func newTestServer(t *testing.T) (*httptest.Server, *car.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:httpapi-%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&car.Car{}, &archive.Archive{}, &user.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	authCfg := testAuthConfig()
	carRepo := car.NewRepo(db)
	carSvc := car.NewService(carRepo)
	archiveSvc := archive.NewService(archive.NewRepo(db), carRepo)
	userSvc := user.NewService(user.NewRepo(db), authCfg)

	ctx := context.Background()
	if err := userSvc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := userSvc.CreateUser(ctx, "bob", "secret1", user.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}

	srv := httptest.NewServer(NewServer(carSvc, archiveSvc, userSvc, authCfg, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, carSvc
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	return out.AccessToken
}

func doJSON(t *testing.T, srv *httptest.Server, token, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, _ := json.Marshal(body)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/cars")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCarLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv, "admin", "admin123")

	resp := doJSON(t, srv, token, http.MethodPost, "/api/cars", map[string]interface{}{
		"make": "BMW", "model": "320i", "vin": "WBA111", "purchase_date": "2026-01-15",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	var created car.Car
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if created.Status != car.StatusAbsent {
		t.Fatalf("expected new car absent")
	}

	// 只带一张照片不能置为 present
	resp = doJSON(t, srv, token, http.MethodPatch, "/api/cars/"+created.ID+"/status", map[string]string{
		"status": "present", "car_photo": "onlyone",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 with one photo, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, token, http.MethodPatch, "/api/cars/"+created.ID+"/status", map[string]string{
		"status": "present", "car_photo": "carb64", "vin_photo": "vinb64",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// absent 带照片负载被拒
	resp = doJSON(t, srv, token, http.MethodPatch, "/api/cars/"+created.ID+"/status", map[string]string{
		"status": "absent", "car_photo": "carb64",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for absent with photo, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, token, http.MethodDelete, "/api/cars/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, token, http.MethodGet, "/api/cars/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListRejectsUnpairedMonth(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv, "admin", "admin123")

	resp := doJSON(t, srv, token, http.MethodGet, "/api/cars?month=3", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for month without year, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, token, http.MethodGet, "/api/cars/stats/summary?year=2026", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for year without month, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminGates(t *testing.T) {
	srv, _ := newTestServer(t)
	userToken := login(t, srv, "bob", "secret1")

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/cars"},
		{http.MethodDelete, "/api/archives"},
		{http.MethodPost, "/api/archives/create-monthly"},
		{http.MethodGet, "/api/auth/users"},
		{http.MethodPost, "/api/auth/create-user"},
	} {
		resp := doJSON(t, srv, userToken, tc.method, tc.path, map[string]string{})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 for non-admin, got %d", tc.method, tc.path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// 普通账号仍可读列表与统计
	resp := doJSON(t, srv, userToken, http.MethodGet, "/api/cars", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for user list, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestArchiveEndpoints(t *testing.T) {
	srv, cars := newTestServer(t)
	token := login(t, srv, "admin", "admin123")

	if _, err := cars.CreateCar(context.Background(), car.CreateCarInput{Make: "VW", Model: "Golf"}); err != nil {
		t.Fatalf("seed car: %v", err)
	}

	resp := doJSON(t, srv, token, http.MethodPost, "/api/archives/create-monthly", map[string]interface{}{
		"archive_name": "Januar 2026", "month": 1, "year": 2026,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create archive status %d", resp.StatusCode)
	}
	var a archive.Archive
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if a.TotalCars != 1 {
		t.Fatalf("expected 1 car in snapshot, got %d", a.TotalCars)
	}

	resp = doJSON(t, srv, token, http.MethodGet, "/api/archives/"+a.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get archive status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, token, http.MethodDelete, "/api/archives", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete all archives status %d", resp.StatusCode)
	}
	var out map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if out["deleted_count"] != 1 {
		t.Fatalf("expected deleted_count 1, got %d", out["deleted_count"])
	}
}

func TestImportCSVEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv, "admin", "admin123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "inventory.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fmt.Fprint(part, "make,model,vin\nBMW,320i,WBA111\n")
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/cars/import-csv", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status %d", resp.StatusCode)
	}
	var result car.ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.ImportedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Message != "1 imported" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestImportCSVRejectsNonCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv, "admin", "admin123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "inventory.xlsx")
	fmt.Fprint(part, "not a csv")
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cars/import-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-csv upload, got %d", resp.StatusCode)
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Detail, ".csv") {
		t.Fatalf("unexpected detail: %q", body.Detail)
	}
}

func TestUserManagementEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv, "admin", "admin123")

	resp := doJSON(t, srv, token, http.MethodPost, "/api/auth/create-user", map[string]string{
		"username": "carla", "password": "secret1", "role": "user",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user status %d", resp.StatusCode)
	}
	var created user.User
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, token, http.MethodGet, "/api/auth/users", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users status %d", resp.StatusCode)
	}
	var list []user.User
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(list) != 3 {
		t.Fatalf("expected 3 users, got %d", len(list))
	}

	resp = doJSON(t, srv, token, http.MethodDelete, "/api/auth/users/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete user status %d", resp.StatusCode)
	}
	resp.Body.Close()
}
