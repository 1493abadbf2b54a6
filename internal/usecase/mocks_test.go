//go:build !integration

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/adapter"
)

func pairKey(tgID int64, productID string) string {
	return fmt.Sprintf("%d/%s", tgID, productID)
}

// ---- users ----

type memUserRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.User
	saveErr error
	findErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (r *memUserRepo) Save(_ context.Context, u *model.User) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.store[u.TelegramID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		existing.LastName = u.LastName
		return nil
	}
	cp := *u
	r.store[u.TelegramID] = &cp
	return nil
}

func (r *memUserRepo) FindByTelegramID(_ context.Context, tgID int64) (*model.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) MarkGiftReceived(_ context.Context, tgID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.GiftReceived = true
	return nil
}

func (r *memUserRepo) CountUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store), nil
}

// ---- subscriptions ----

type memSubscriptionRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Subscription
	upsertErr error
	findErr   error
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (r *memSubscriptionRepo) Upsert(_ context.Context, s *model.Subscription) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.store[pairKey(s.TelegramID, s.ProductID)] = &cp
	return nil
}

func (r *memSubscriptionRepo) FindActive(_ context.Context, tgID int64, productID string) (*model.Subscription, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.store[pairKey(tgID, productID)]
	if !ok || !s.Active {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSubscriptionRepo) ListByUser(_ context.Context, tgID int64) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range r.store {
		if s.TelegramID == tgID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) Deactivate(_ context.Context, tgID int64, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[pairKey(tgID, productID)]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = false
	return nil
}

func (r *memSubscriptionRepo) EverHad(_ context.Context, tgID int64, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.store[pairKey(tgID, productID)]
	return ok, nil
}

func (r *memSubscriptionRepo) FindExpiringTrials(_ context.Context, now time.Time, window time.Duration) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range r.store {
		if s.Active && s.Method == model.MethodTrial && s.EndAt.After(now) && s.EndAt.Before(now.Add(window)) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) FindExpiredTrials(_ context.Context, now time.Time) ([]*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range r.store {
		if s.Active && s.Method == model.MethodTrial && s.EndAt.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) CountActiveByProduct(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, s := range r.store {
		if s.Active {
			out[s.ProductID]++
		}
	}
	return out, nil
}

// ---- payments ----

type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment // keyed by invoice id
	saveErr error
	markErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (r *memPaymentRepo) Save(_ context.Context, p *model.Payment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.store[p.InvoiceID] = &cp
	return nil
}

func (r *memPaymentRepo) FindByInvoiceID(_ context.Context, invoiceID string) (*model.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.store[invoiceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) MarkSucceeded(_ context.Context, invoiceID string) (bool, error) {
	if r.markErr != nil {
		return false, r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.store[invoiceID]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = model.PaymentStatusSuccess
	p.PaidAt = &now
	p.UpdatedAt = now
	return true, nil
}

func (r *memPaymentRepo) SumSince(_ context.Context, t time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, p := range r.store {
		if p.Status == model.PaymentStatusSuccess && p.PaidAt != nil && !p.PaidAt.Before(t) {
			sum += p.AmountRUB
		}
	}
	return sum, nil
}

// ---- reminders ----

type memReminderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{store: make(map[string]*model.Reminder)}
}

func (r *memReminderRepo) Upsert(_ context.Context, tgID int64, productID string, dueAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[pairKey(tgID, productID)] = &model.Reminder{
		TelegramID: tgID,
		ProductID:  productID,
		DueAt:      dueAt,
	}
	return nil
}

func (r *memReminderRepo) MarkSent(_ context.Context, tgID int64, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.store[pairKey(tgID, productID)]
	if !ok {
		return domain.ErrNotFound
	}
	rem.Sent = true
	return nil
}

func (r *memReminderRepo) ListDue(_ context.Context, now time.Time) ([]*model.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Reminder
	for _, rem := range r.store {
		if !rem.Sent && !rem.DueAt.After(now) {
			cp := *rem
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- messenger / channel access ----

type sentMessage struct {
	tgID    int64
	text    string
	kb      adapter.Keyboard
	product string
}

type mockMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

func (m *mockMessenger) Send(_ context.Context, tgID int64, text string, kb adapter.Keyboard, kbProduct string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{tgID: tgID, text: text, kb: kb, product: kbProduct})
	return nil
}

type accessCall struct {
	channelID int64
	tgID      int64
}

type mockChannelAccess struct {
	mu        sync.Mutex
	grants    []accessCall
	revokes   []accessCall
	grantErr  error
	revokeErr error
}

func (m *mockChannelAccess) Grant(_ context.Context, channelID, tgID int64) error {
	if m.grantErr != nil {
		return m.grantErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, accessCall{channelID: channelID, tgID: tgID})
	return nil
}

func (m *mockChannelAccess) Revoke(_ context.Context, channelID, tgID int64) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokes = append(m.revokes, accessCall{channelID: channelID, tgID: tgID})
	return nil
}

// ---- fixture ----

type fixture struct {
	users     *memUserRepo
	subs      *memSubscriptionRepo
	payments  *memPaymentRepo
	reminders *memReminderRepo
	access    *mockChannelAccess
	messenger *mockMessenger
	products  *model.ProductSet
	subUC     *SubscriptionUseCase
}

func testProducts() *model.ProductSet {
	set, err := model.NewProductSet([]*model.Product{
		{
			ID:          model.ProductChannel1,
			Title:       "Клуб",
			ChannelID:   -1001,
			PriceRUB:    2990,
			Description: "Подписка на закрытый клуб",
			Merchant:    model.MerchantAccount{Login: "club_1", Password1: "one-p1", Password2: "one-p2"},
		},
		{
			ID:          model.ProductChannel2,
			Title:       "Мастер-группа",
			ChannelID:   -1002,
			PriceRUB:    1990,
			Description: "Подписка на мастер-группу",
			Merchant:    model.MerchantAccount{Login: "club_2", Password1: "two-p1", Password2: "two-p2"},
		},
	}, model.ProductChannel1)
	if err != nil {
		panic(err)
	}
	return set
}

func newFixture() *fixture {
	f := &fixture{
		users:     newMemUserRepo(),
		subs:      newMemSubscriptionRepo(),
		payments:  newMemPaymentRepo(),
		reminders: newMemReminderRepo(),
		access:    &mockChannelAccess{},
		messenger: &mockMessenger{},
		products:  testProducts(),
	}
	logger := zerolog.Nop()
	periods := Periods{
		Trial:        14 * 24 * time.Hour,
		Paid:         30 * 24 * time.Hour,
		ReminderLead: 3 * 24 * time.Hour,
	}
	f.subUC = NewSubscriptionUseCase(f.users, f.subs, f.reminders, f.products, periods, f.access, f.messenger, &logger)
	return f
}

func (f *fixture) addUser(t interface{ Fatalf(string, ...interface{}) }, tgID int64) {
	u, err := model.NewUser(tgID, "tester", "Test", "User")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := f.users.Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}
}
