package registry

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/settings"
	"github.com/okadago/backend/internal/store"
	"github.com/okadago/backend/internal/store/memory"
)

type fixture struct {
	reg      *Registry
	store    *memory.Store
	settings *settings.Static
	events   *events.Recorder
	jwt      *security.JWTManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		store:    memory.New(0),
		settings: settings.NewStatic(domain.DefaultPricing()),
		events:   &events.Recorder{},
		jwt:      security.NewJWTManager("test-key", time.Minute, time.Hour),
	}
	f.reg = New(f.store, f.settings, f.jwt, memory.NewRefreshTokens(), f.events, zaptest.NewLogger(t))
	return f
}

func (f fixture) signup(t *testing.T, in SignupInput) domain.User {
	t.Helper()
	if in.Password == "" {
		in.Password = "secret123"
	}
	u, err := f.reg.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("Signup(%s): %v", in.Email, err)
	}
	return u
}

func TestSignupDefaults(t *testing.T) {
	f := newFixture(t)

	p := f.signup(t, SignupInput{Name: "Ada", Email: " Ada@Example.com "})
	if p.Role != domain.RolePassenger || p.Status != domain.StatusActive || p.WalletBalance != 0 {
		t.Errorf("passenger = %+v", p)
	}
	if p.Email != "ada@example.com" {
		t.Errorf("email = %q", p.Email)
	}
	if p.PasswordHash == "" || p.PasswordHash == "secret123" {
		t.Error("password not hashed")
	}

	d := f.signup(t, SignupInput{
		Name:         "Tunde",
		Email:        "tunde@example.com",
		Role:         domain.RoleDriver,
		VehicleType:  domain.VehicleKeke,
		LicensePlate: "lag-123xy",
	})
	if d.VehicleCapacityKg != 400 || d.LoadStatus != domain.LoadEmpty || d.CurrentLoadKg != 0 {
		t.Errorf("driver load fields = %+v", d)
	}
	if d.IsOnline || d.Rating != 5.0 || d.TotalTrips != 0 || d.LicensePlate != "LAG-123XY" {
		t.Errorf("driver defaults = %+v", d)
	}

	recs, _ := f.store.Repos().Activity.ListByUser(context.Background(), d.ID, 0)
	if len(recs) != 1 || recs[0].Action != activity.ActionSignup {
		t.Errorf("activity = %+v", recs)
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignupInput
		kind apperr.Kind
	}{
		{"missing name", SignupInput{Email: "a@example.com", Password: "secret123"}, apperr.KindValidation},
		{"bad email", SignupInput{Name: "A", Email: "nope", Password: "secret123"}, apperr.KindValidation},
		{"weak password", SignupInput{Name: "A", Email: "a@example.com", Password: "123"}, apperr.KindValidation},
		{"password over bcrypt limit", SignupInput{Name: "A", Email: "a@example.com", Password: strings.Repeat("secret12", 10) + "x"}, apperr.KindValidation},
		{"admin role", SignupInput{Name: "A", Email: "a@example.com", Password: "secret123", Role: domain.RoleAdmin}, apperr.KindValidation},
		{"driver without vehicle", SignupInput{Name: "A", Email: "a@example.com", Password: "secret123", Role: domain.RoleDriver}, apperr.KindValidation},
		{"bad nin", SignupInput{Name: "A", Email: "a@example.com", Password: "secret123", NIN: "12"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.reg.Signup(ctx, tt.in); !apperr.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestSignupDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, SignupInput{Name: "Ada", Email: "ada@example.com", NIN: "12345678901"})

	_, err := f.reg.Signup(ctx, SignupInput{Name: "Ada 2", Email: "ADA@example.com", Password: "secret123"})
	if e, ok := apperr.As(err); !ok || e.Kind != apperr.KindDuplicateUser || e.Details["field"] != "email" {
		t.Errorf("duplicate email: err = %v", err)
	}

	_, err = f.reg.Signup(ctx, SignupInput{Name: "Bola", Email: "bola@example.com", NIN: "12345678901", Password: "secret123"})
	if e, ok := apperr.As(err); !ok || e.Kind != apperr.KindDuplicateUser || e.Details["field"] != "nin" {
		t.Errorf("duplicate nin: err = %v", err)
	}

	_, _, err = f.reg.RecruitDriver(ctx, "admin", RecruitInput{Name: "X", Email: "ada@example.com", VehicleType: domain.VehicleOkada})
	if !apperr.Is(err, apperr.KindDuplicateUser) {
		t.Errorf("recruit duplicate: err = %v", err)
	}
}

func TestRecruitDriverThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, password, err := f.reg.RecruitDriver(ctx, "admin-1", RecruitInput{
		Name:         "Musa",
		Email:        "musa@example.com",
		Phone:        "08031234567",
		VehicleType:  domain.VehicleTruck,
		LicensePlate: "ABJ-001",
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Role != domain.RoleDriver || d.VehicleCapacityKg != 3000 || d.Phone != "+2348031234567" {
		t.Errorf("driver = %+v", d)
	}
	if password == "" {
		t.Fatal("no temporary password")
	}

	u, tokens, err := f.reg.Login(ctx, "musa@example.com", password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, role, err := f.jwt.ParseAccess(tokens.AccessToken)
	if err != nil || id != u.ID || role != domain.RoleDriver {
		t.Errorf("access token = (%s, %s, %v)", id, role, err)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, SignupInput{Name: "Ada", Email: "ada@example.com"})

	if _, _, err := f.reg.Login(ctx, "ada@example.com", "wrong-pass"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, _, err := f.reg.Login(ctx, "nobody@example.com", "secret123"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("unknown email: err = %v", err)
	}

	_ = f.settings.BlockIP(ctx, "41.58.0.1")
	blockedCtx := activity.WithIP(ctx, "41.58.0.1")
	if _, _, err := f.reg.Login(blockedCtx, "ada@example.com", "secret123"); !apperr.Is(err, apperr.KindAccountBlocked) {
		t.Errorf("blocked ip: err = %v", err)
	}

	if _, err := f.reg.UpdateUserStatus(ctx, "admin", u.ID, domain.StatusBanned, "chargebacks"); err != nil {
		t.Fatal(err)
	}
	_, _, err := f.reg.Login(ctx, "ada@example.com", "secret123")
	if e, ok := apperr.As(err); !ok || e.Kind != apperr.KindAccountBlocked || e.Details["reason"] != "chargebacks" {
		t.Errorf("banned: err = %v", err)
	}
}

func TestRefreshIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, SignupInput{Name: "Ada", Email: "ada@example.com"})

	_, tokens, err := f.reg.Login(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	next, err := f.reg.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := f.reg.Refresh(ctx, tokens.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("reuse: err = %v", err)
	}

	if err := f.reg.Logout(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reg.Refresh(ctx, next.RefreshToken); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("after logout: err = %v", err)
	}
}

func TestUpdateUserStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.signup(t, SignupInput{Name: "Tunde", Email: "t@example.com", Role: domain.RoleDriver, VehicleType: domain.VehicleOkada})
	if _, err := f.reg.SetOnline(ctx, d.ID, true); err != nil {
		t.Fatal(err)
	}

	got, err := f.reg.UpdateUserStatus(ctx, "admin", d.ID, domain.StatusSuspended, "documents expired")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusSuspended || got.SuspensionReason != "documents expired" || got.IsOnline {
		t.Errorf("suspended = %+v", got)
	}

	got, err = f.reg.UpdateUserStatus(ctx, "admin", d.ID, domain.StatusActive, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.SuspensionReason != "" {
		t.Errorf("reason not cleared: %+v", got)
	}

	if _, err := f.reg.UpdateUserStatus(ctx, "admin", d.ID, "DELETED", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("invalid status: err = %v", err)
	}
	if _, err := f.reg.UpdateUserStatus(ctx, "admin", "missing", domain.StatusBanned, ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing user: err = %v", err)
	}
	if _, err := f.reg.UpdateUserStatus(ctx, d.ID, d.ID, domain.StatusBanned, ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("self change: err = %v", err)
	}

	recs, _ := f.reg.GetUserActivity(ctx, d.ID, 0)
	changes := 0
	for _, r := range recs {
		if r.Action == activity.ActionStatusChanged {
			changes++
		}
	}
	if changes != 2 {
		t.Errorf("status change records = %d, want 2", changes)
	}

	var statusEvents int
	for _, typ := range f.events.Types() {
		if typ == events.UserStatusChanged {
			statusEvents++
		}
	}
	if statusEvents != 2 {
		t.Errorf("user.status_changed events = %d", statusEvents)
	}
}

func TestSetOnlineAndListOnlineDrivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d1 := f.signup(t, SignupInput{Name: "D1", Email: "d1@example.com", Role: domain.RoleDriver, VehicleType: domain.VehicleOkada})
	d2 := f.signup(t, SignupInput{Name: "D2", Email: "d2@example.com", Role: domain.RoleDriver, VehicleType: domain.VehicleKeke})
	p := f.signup(t, SignupInput{Name: "P", Email: "p@example.com"})

	for _, id := range []string{d1.ID, d2.ID} {
		if _, err := f.reg.SetOnline(ctx, id, true); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.reg.SetOnline(ctx, p.ID, true); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("passenger online: err = %v", err)
	}
	if _, err := f.reg.UpdateUserStatus(ctx, "admin", d2.ID, domain.StatusBanned, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reg.SetOnline(ctx, d2.ID, true); !apperr.Is(err, apperr.KindAccountBlocked) {
		t.Errorf("banned online: err = %v", err)
	}

	online, err := f.reg.ListOnlineDrivers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 1 || online[0].ID != d1.ID {
		t.Errorf("online = %+v", online)
	}
}

func TestFundWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.signup(t, SignupInput{Name: "P", Email: "p@example.com"})

	got, err := f.reg.FundWallet(ctx, p.ID, 2500)
	if err != nil {
		t.Fatal(err)
	}
	if got.WalletBalance != 2500 {
		t.Errorf("balance = %v", got.WalletBalance)
	}
	txs, _ := f.store.Repos().Transactions.List(ctx, store.TransactionFilter{UserID: p.ID})
	if len(txs) != 1 || txs[0].Type != domain.TxDeposit || txs[0].Status != domain.TxCompleted || txs[0].Amount != 2500 {
		t.Errorf("transactions = %+v", txs)
	}

	for _, bad := range []float64{0, -5, 0.001, math.Inf(1), math.NaN()} {
		if _, err := f.reg.FundWallet(ctx, p.ID, bad); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("FundWallet(%v): err = %v, want VALIDATION", bad, err)
		}
	}

	got, err = f.reg.FundWallet(ctx, p.ID, 0.337)
	if err != nil {
		t.Fatal(err)
	}
	if got.WalletBalance != 2500.34 {
		t.Errorf("balance after fractional top-up = %v, want 2500.34", got.WalletBalance)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.reg.EnsureAdmin(ctx, "root@example.com", "admin-pass1"); err != nil {
			t.Fatalf("EnsureAdmin #%d: %v", i, err)
		}
	}
	admins, _ := f.store.Repos().Users.List(ctx, store.UserFilter{Role: domain.RoleAdmin})
	if len(admins) != 1 {
		t.Fatalf("admins = %d", len(admins))
	}
	if _, _, err := f.reg.Login(ctx, "root@example.com", "admin-pass1"); err != nil {
		t.Errorf("admin login: %v", err)
	}

	if err := f.reg.EnsureAdmin(ctx, "ops@example.com", strings.Repeat("a", 80)); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("long admin password: err = %v, want VALIDATION", err)
	}
}
