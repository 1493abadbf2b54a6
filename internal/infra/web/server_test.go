//go:build !integration

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/adapter"
	"telegram-club-subscription/internal/usecase"
)

// ---- stubs ----

type stubPaymentUC struct {
	handleFunc func(ctx context.Context, n usecase.Notification) (string, error)
}

func (s *stubPaymentUC) Initiate(context.Context, int64, string) (string, string, error) {
	return "https://example.test/pay", "1", nil
}

func (s *stubPaymentUC) HandleResult(ctx context.Context, n usecase.Notification) (string, error) {
	return s.handleFunc(ctx, n)
}

type stubUserRepo struct{ store map[int64]*model.User }

func (s *stubUserRepo) Save(_ context.Context, u *model.User) error {
	if s.store == nil {
		s.store = map[int64]*model.User{}
	}
	cp := *u
	s.store[u.TelegramID] = &cp
	return nil
}

func (s *stubUserRepo) FindByTelegramID(_ context.Context, tgID int64) (*model.User, error) {
	if u, ok := s.store[tgID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubUserRepo) MarkGiftReceived(_ context.Context, tgID int64) error {
	u, ok := s.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.GiftReceived = true
	return nil
}

func (s *stubUserRepo) CountUsers(context.Context) (int, error) { return 3, nil }

type stubSubRepo struct{}

func (stubSubRepo) Upsert(context.Context, *model.Subscription) error { return nil }
func (stubSubRepo) FindActive(context.Context, int64, string) (*model.Subscription, error) {
	return nil, domain.ErrNotFound
}
func (stubSubRepo) ListByUser(context.Context, int64) ([]*model.Subscription, error) {
	return nil, nil
}
func (stubSubRepo) Deactivate(context.Context, int64, string) error { return nil }
func (stubSubRepo) EverHad(context.Context, int64, string) (bool, error) {
	return false, nil
}
func (stubSubRepo) FindExpiringTrials(context.Context, time.Time, time.Duration) ([]*model.Subscription, error) {
	return nil, nil
}
func (stubSubRepo) FindExpiredTrials(context.Context, time.Time) ([]*model.Subscription, error) {
	return nil, nil
}
func (stubSubRepo) CountActiveByProduct(context.Context) (map[string]int, error) {
	return map[string]int{model.ProductChannel1: 2}, nil
}

type stubPaymentRepo struct{}

func (stubPaymentRepo) Save(context.Context, *model.Payment) error { return nil }
func (stubPaymentRepo) FindByInvoiceID(context.Context, string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (stubPaymentRepo) MarkSucceeded(context.Context, string) (bool, error) { return false, nil }
func (stubPaymentRepo) SumSince(context.Context, time.Time) (int64, error)  { return 1990, nil }

type stubReminderRepo struct{}

func (stubReminderRepo) Upsert(context.Context, int64, string, time.Time) error { return nil }
func (stubReminderRepo) MarkSent(context.Context, int64, string) error          { return nil }
func (stubReminderRepo) ListDue(context.Context, time.Time) ([]*model.Reminder, error) {
	return nil, nil
}

type nopMessenger struct{}

func (nopMessenger) Send(context.Context, int64, string, adapter.Keyboard, string) error {
	return nil
}

type nopAccess struct{}

func (nopAccess) Grant(context.Context, int64, int64) error  { return nil }
func (nopAccess) Revoke(context.Context, int64, int64) error { return nil }

func testServer(t *testing.T, payUC usecase.PaymentUseCase) (*Server, http.Handler) {
	t.Helper()
	logger := zerolog.Nop()
	products, err := model.NewProductSet([]*model.Product{
		{ID: model.ProductChannel1, Title: "Клуб", ChannelID: -1001, PriceRUB: 2990},
	}, model.ProductChannel1)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	users := &stubUserRepo{}
	subUC := usecase.NewSubscriptionUseCase(
		users, stubSubRepo{}, stubReminderRepo{}, products,
		usecase.Periods{Trial: 14 * 24 * time.Hour, Paid: 30 * 24 * time.Hour, ReminderLead: 3 * 24 * time.Hour},
		nopAccess{}, nopMessenger{}, &logger,
	)
	statsUC := usecase.NewStatsUseCase(users, stubSubRepo{}, stubPaymentRepo{})
	auth := NewAuthManager("test-secret", false, time.Hour)
	srv := NewServer(payUC, subUC, statsUC, auth, "letmein", "club_test_bot", &logger)
	return srv, srv.Router()
}

// ---- tests ----

func TestHandleResultEndpoint(t *testing.T) {
	t.Run("form fields reach the reconciler and the body is echoed verbatim", func(t *testing.T) {
		var got usecase.Notification
		payUC := &stubPaymentUC{handleFunc: func(_ context.Context, n usecase.Notification) (string, error) {
			got = n
			return "OK123", nil
		}}
		_, router := testServer(t, payUC)

		form := url.Values{}
		form.Set("OutSum", "1990.00")
		form.Set("InvId", "123")
		form.Set("SignatureValue", "deadbeef")
		form.Set("Shp_user_id", "42")
		req := httptest.NewRequest(http.MethodPost, "/robokassa/result", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := rec.Body.String(); body != "OK123" {
			t.Errorf("body = %q", body)
		}
		if got.OutSum != "1990.00" || got.InvoiceID != "123" || got.Signature != "deadbeef" {
			t.Errorf("notification = %+v", got)
		}
		if got.Params["Shp_user_id"] != "42" {
			t.Errorf("shp params not forwarded: %v", got.Params)
		}
	})

	t.Run("rejections still answer 200 with the gateway error body", func(t *testing.T) {
		payUC := &stubPaymentUC{handleFunc: func(context.Context, usecase.Notification) (string, error) {
			return "ERROR: Invalid signature", domain.ErrInvalidSignature
		}}
		_, router := testServer(t, payUC)

		req := httptest.NewRequest(http.MethodPost, "/robokassa/result", strings.NewReader("InvId=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, redelivery contract requires 200", rec.Code)
		}
		if body := rec.Body.String(); body != "ERROR: Invalid signature" {
			t.Errorf("body = %q", body)
		}
	})
}

func TestReturnPages(t *testing.T) {
	_, router := testServer(t, &stubPaymentUC{})
	for _, path := range []string{"/robokassa/success", "/robokassa/fail"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "https://t.me/club_test_bot") {
			t.Errorf("%s: page misses the bot link", path)
		}
	}
}

func TestHealth(t *testing.T) {
	_, router := testServer(t, &stubPaymentUC{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAdminAPI(t *testing.T) {
	_, router := testServer(t, &stubPaymentUC{})

	login := func(password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"password": password})
		req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("wrong password is refused", func(t *testing.T) {
		if rec := login("nope"); rec.Code != http.StatusForbidden {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("stats require a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("login issues a bearer token accepted by the admin routes", func(t *testing.T) {
		rec := login("letmein")
		if rec.Code != http.StatusOK {
			t.Fatalf("login status = %d", rec.Code)
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
			t.Fatalf("bad login response: %v %q", err, rec.Body.String())
		}

		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("stats status = %d", rec.Code)
		}
		var stats usecase.Stats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("bad stats body: %v", err)
		}
		if stats.TotalUsers != 3 || stats.ActiveByProduct[model.ProductChannel1] != 2 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("forged token is refused", func(t *testing.T) {
		other := NewAuthManager("other-secret", false, time.Hour)
		forged, err := other.Mint(httptest.NewRecorder())
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("import grants trials and reports counts", func(t *testing.T) {
		rec := login("letmein")
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("login: %v", err)
		}

		body := []byte(`{"telegram_ids": [501, 502]}`)
		req := httptest.NewRequest(http.MethodPost, "/admin/import", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("import status = %d", rec.Code)
		}
		var out map[string]int
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("bad import body: %v", err)
		}
		if out["total"] != 2 || out["gifted"] != 2 {
			t.Errorf("import result = %v", out)
		}
	})
}
