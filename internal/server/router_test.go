package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/config"
	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/fare"
	"github.com/okadago/backend/internal/registry"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/settings"
	"github.com/okadago/backend/internal/store/memory"
)

type envelope struct {
	Status      string          `json:"status"`
	Code        int             `json:"code"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
}

type api struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T) api {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := memory.New(0)
	sp := settings.NewStatic(domain.DefaultPricing())
	jwtm := security.NewJWTManager("router-test-key", time.Minute, time.Hour)
	pub := &events.Recorder{}

	reg := registry.New(st, sp, jwtm, memory.NewRefreshTokens(), pub, logger)
	if err := reg.EnsureAdmin(context.Background(), "admin@okada.test", "admin123"); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{App: config.App{Env: "test", CORSOrigins: []string{"*"}}}
	h := NewRouter(cfg, Deps{
		Registry: reg,
		Engine:   dispatch.New(st, sp, pub, logger),
		Settings: sp,
		Fares:    fare.NewCalculator(sp),
		JWT:      jwtm,
	}, logger)
	return api{t: t, h: h}
}

func (a api) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		a.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (a api) must(method, path, token string, body any, wantCode int, out any) {
	a.t.Helper()
	code, env := a.do(method, path, token, body)
	if code != wantCode {
		a.t.Fatalf("%s %s = %d (%s), want %d", method, path, code, env.Description, wantCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (a api) wantError(method, path, token string, body any, wantCode int, kind apperr.Kind) {
	a.t.Helper()
	code, env := a.do(method, path, token, body)
	if code != wantCode {
		a.t.Fatalf("%s %s = %d (%s), want %d", method, path, code, env.Description, wantCode)
	}
	var data struct {
		Kind apperr.Kind `json:"kind"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Kind != kind {
		a.t.Fatalf("%s %s kind = %q, want %q", method, path, data.Kind, kind)
	}
}

func (a api) login(email, password string) string {
	a.t.Helper()
	var out struct {
		Tokens security.Tokens `json:"tokens"`
	}
	a.must(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password}, http.StatusOK, &out)
	return out.Tokens.AccessToken
}

func TestHealthAndAuthGuard(t *testing.T) {
	a := newAPI(t)
	a.must(http.MethodGet, "/health", "", nil, http.StatusOK, nil)

	code, _ := a.do(http.MethodGet, "/v1/me", "", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("/v1/me without token = %d", code)
	}
	code, _ = a.do(http.MethodGet, "/v1/me", "not-a-jwt", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("/v1/me with bad token = %d", code)
	}
	a.wantError(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "admin@okada.test", "password": "wrong1"},
		http.StatusUnauthorized, apperr.KindUnauthorized)
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)

	a.must(http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"name": "Chioma", "email": "chioma@example.com", "password": "passw0rd",
	}, http.StatusCreated, nil)
	a.must(http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"name": "Emeka", "email": "emeka@example.com", "password": "passw0rd",
		"role": "DRIVER", "vehicle_type": "OKADA", "license_plate": "KJA-452AB",
	}, http.StatusCreated, nil)
	a.wantError(http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"name": "Dup", "email": "chioma@example.com", "password": "passw0rd",
	}, http.StatusConflict, apperr.KindDuplicateUser)

	passenger := a.login("chioma@example.com", "passw0rd")
	driver := a.login("emeka@example.com", "passw0rd")

	var quote struct {
		Price float64 `json:"price"`
	}
	a.must(http.MethodGet, "/v1/fares/quote?vehicle_type=OKADA&distance_km=5", "", nil, http.StatusOK, &quote)
	if quote.Price != 450 {
		t.Errorf("quote = %v", quote.Price)
	}

	var ride domain.Ride
	a.must(http.MethodPost, "/v1/rides", passenger, map[string]any{
		"vehicle_type": "OKADA", "pickup_address": "Yaba", "dropoff_address": "Ikeja", "distance_km": 5,
	}, http.StatusCreated, &ride)
	if ride.Price != 450 || ride.Status != domain.RidePending {
		t.Fatalf("ride = %+v", ride)
	}

	code, _ := a.do(http.MethodGet, "/v1/rides/offers", passenger, nil)
	if code != http.StatusForbidden {
		t.Errorf("passenger offers = %d", code)
	}
	var offers []domain.Ride
	a.must(http.MethodGet, "/v1/rides/offers", driver, nil, http.StatusOK, &offers)
	if len(offers) != 1 || offers[0].ID != ride.ID {
		t.Fatalf("offers = %+v", offers)
	}

	a.wantError(http.MethodPost, "/v1/rides/"+ride.ID+"/accept", driver, nil, http.StatusBadRequest, apperr.KindValidation)
	a.must(http.MethodPut, "/v1/drivers/me/online", driver, map[string]bool{"online": true}, http.StatusOK, nil)
	a.must(http.MethodPost, "/v1/rides/"+ride.ID+"/accept", driver, nil, http.StatusOK, &ride)
	if ride.Status != domain.RideAccepted {
		t.Fatalf("accepted ride = %+v", ride)
	}
	a.wantError(http.MethodPost, "/v1/rides/"+ride.ID+"/status", passenger, map[string]string{"status": "COMPLETED"},
		http.StatusConflict, apperr.KindInvalidTransition)

	a.must(http.MethodPost, "/v1/rides/"+ride.ID+"/status", driver, map[string]string{"status": "IN_PROGRESS"}, http.StatusOK, nil)
	a.must(http.MethodPost, "/v1/rides/"+ride.ID+"/status", driver, map[string]string{"status": "COMPLETED"}, http.StatusOK, &ride)
	if ride.Status != domain.RideCompleted || ride.EndTime == nil {
		t.Fatalf("completed ride = %+v", ride)
	}

	var me domain.User
	a.must(http.MethodGet, "/v1/me", driver, nil, http.StatusOK, &me)
	if me.WalletBalance != 360 || me.LoadStatus != domain.LoadEmpty {
		t.Errorf("driver after ride = %+v", me)
	}

	a.wantError(http.MethodPost, "/v1/wallet/withdraw", driver, map[string]float64{"amount": 9000},
		http.StatusUnprocessableEntity, apperr.KindInsufficientFunds)
	var withdrawal struct {
		WalletBalance float64 `json:"wallet_balance"`
	}
	a.must(http.MethodPost, "/v1/wallet/withdraw", driver, map[string]float64{"amount": 60}, http.StatusCreated, &withdrawal)
	if withdrawal.WalletBalance != 300 {
		t.Errorf("balance after withdrawal = %v", withdrawal.WalletBalance)
	}

	var recs []domain.ActivityRecord
	a.must(http.MethodGet, "/v1/me/activity?limit=5", driver, nil, http.StatusOK, &recs)
	if len(recs) == 0 || recs[0].IP == "" {
		t.Errorf("activity = %+v", recs)
	}
}

func TestAdminEndpoints(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin@okada.test", "admin123")

	var recruited struct {
		Driver            domain.User `json:"driver"`
		TemporaryPassword string      `json:"temporary_password"`
	}
	a.must(http.MethodPost, "/v1/admin/drivers", admin, map[string]any{
		"name": "Bola", "email": "bola@example.com", "vehicle_type": "TRUCK", "license_plate": "LND-001TR",
	}, http.StatusCreated, &recruited)
	if recruited.Driver.VehicleCapacityKg != 3000 || recruited.TemporaryPassword == "" {
		t.Fatalf("recruited = %+v", recruited)
	}
	driver := a.login("bola@example.com", recruited.TemporaryPassword)

	code, _ := a.do(http.MethodGet, "/v1/admin/stats", driver, nil)
	if code != http.StatusForbidden {
		t.Errorf("driver stats = %d", code)
	}
	var stats dispatch.DashboardStats
	a.must(http.MethodGet, "/v1/admin/stats", admin, nil, http.StatusOK, &stats)
	if stats.TotalUsers != 2 || stats.UsersByRole[domain.RoleDriver] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	a.must(http.MethodPut, "/v1/admin/settings/maintenance", admin, map[string]bool{"enabled": true}, http.StatusOK, nil)
	a.wantError(http.MethodPost, "/v1/rides", driver, map[string]any{
		"vehicle_type": "TRUCK", "pickup_address": "Apapa", "dropoff_address": "Ikorodu", "distance_km": 20,
	}, http.StatusServiceUnavailable, apperr.KindMaintenance)
	a.must(http.MethodPut, "/v1/admin/settings/maintenance", admin, map[string]bool{"enabled": false}, http.StatusOK, nil)

	a.must(http.MethodPatch, "/v1/admin/users/"+recruited.Driver.ID+"/status", admin,
		map[string]string{"status": "BANNED", "reason": "document fraud"}, http.StatusOK, nil)
	a.wantError(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "bola@example.com", "password": recruited.TemporaryPassword},
		http.StatusForbidden, apperr.KindAccountBlocked)

	a.must(http.MethodPost, "/v1/admin/settings/blocked-ips/192.0.2.1", admin, nil, http.StatusOK, nil)
	a.wantError(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "admin@okada.test", "password": "admin123"},
		http.StatusForbidden, apperr.KindAccountBlocked)
	code, _ = a.do(http.MethodPost, "/v1/admin/settings/blocked-ips/not-an-ip", admin, nil)
	if code != http.StatusBadRequest {
		t.Errorf("invalid ip = %d", code)
	}
}

func TestStatusForCoversEveryKind(t *testing.T) {
	a := newAPI(t)
	var items []struct {
		Kind apperr.Kind `json:"kind"`
		Code int         `json:"code"`
	}
	a.must(http.MethodGet, "/v1/status-codes", "", nil, http.StatusOK, &items)
	for _, it := range items {
		if it.Code == http.StatusInternalServerError && it.Kind != apperr.KindConfiguration {
			t.Errorf("%s falls back to 500", it.Kind)
		}
	}
	if len(items) != 12 {
		t.Errorf("kinds = %d", len(items))
	}
}

func TestDocsServed(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("/v1/rides/{id}/accept")) {
		t.Errorf("openapi.yaml = %d", rec.Code)
	}
}
