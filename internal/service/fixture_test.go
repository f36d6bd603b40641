package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/events"
	"github.com/TronoSfera/Law-sub001/internal/repository/memory"
	"github.com/TronoSfera/Law-sub001/internal/secure"
)

const testTopic = "civil"

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// recordingBus is a synchronous dispatcher that keeps every published event.
type recordingBus struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func newRecordingBus() *recordingBus {
	return &recordingBus{handlers: map[events.EventType][]events.EventHandler{}}
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	handlers := append([]events.EventHandler(nil), b.handlers[event.Type]...)
	b.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}

func (b *recordingBus) Subscribe(eventType events.EventType, handler events.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) ofType(t events.EventType) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	clock    *clock.Fixed
	bus      *recordingBus
	notifier *NotificationService
	billing  *BillingEngine
	statuses *StatusService
	invoices *InvoiceService
	requests *RequestService
	messages *MessageService
	sla      *SLAService

	admin   domain.AdminUser
	lawyer  domain.AdminUser
	lawyer2 domain.AdminUser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	box, err := secure.NewBox("test-encryption-key")
	require.NoError(t, err)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		clock: clock.NewFixed(testEpoch),
		bus:   newRecordingBus(),
	}
	f.notifier = NewNotificationService(NotificationDependencies{Store: f.store, Dispatcher: f.bus, Clock: f.clock})
	f.billing = NewBillingEngine(box, f.clock, BillingConfig{Currency: "RUB", NumberPrefix: "INV"}, nil)
	f.statuses = NewStatusService(StatusDependencies{
		Store: f.store, Billing: f.billing, Notifier: f.notifier, Dispatcher: f.bus, Clock: f.clock,
	})
	f.invoices = NewInvoiceService(InvoiceDependencies{Store: f.store, Billing: f.billing, Notifier: f.notifier, Clock: f.clock})
	f.requests = NewRequestService(RequestDependencies{Store: f.store, Notifier: f.notifier, Clock: f.clock})
	f.messages = NewMessageService(MessageDependencies{Store: f.store, Notifier: f.notifier, Clock: f.clock})
	f.sla = NewSLAService(SLADependencies{Store: f.store, Notifier: f.notifier, Clock: f.clock, Config: DefaultSLAConfig()})

	repos := f.store.Repos()
	for _, st := range domain.DefaultStatuses() {
		st := st
		require.NoError(t, repos.Statuses.Upsert(f.ctx, &st))
	}
	for _, edge := range [][2]string{
		{"NEW", "IN_PROGRESS"},
		{"IN_PROGRESS", "BILLING"},
		{"BILLING", "PAID"},
		{"BILLING", "IN_PROGRESS"},
		{"PAID", "IN_PROGRESS"},
		{"IN_PROGRESS", "WAITING_CLIENT"},
		{"WAITING_CLIENT", "IN_PROGRESS"},
		{"IN_PROGRESS", "RESOLVED"},
	} {
		f.addTransition(edge[0], edge[1], nil)
	}

	f.admin = f.addUser("admin@example.com", domain.RoleAdmin)
	f.lawyer = f.addUser("lawyer@example.com", domain.RoleLawyer)
	f.lawyer2 = f.addUser("lawyer2@example.com", domain.RoleLawyer)
	return f
}

func (f *fixture) addTransition(from, to string, mutate func(*domain.TopicStatusTransition)) {
	f.t.Helper()
	tr := &domain.TopicStatusTransition{TopicCode: testTopic, FromStatus: from, ToStatus: to, Enabled: true}
	if mutate != nil {
		mutate(tr)
	}
	require.NoError(f.t, f.store.Repos().Transitions.Upsert(f.ctx, tr))
}

func (f *fixture) addUser(email string, role domain.Role) domain.AdminUser {
	f.t.Helper()
	u := domain.AdminUser{Name: email, Email: email, PasswordHash: "x", Role: role, Active: true, CreatedAt: f.clock.Now()}
	require.NoError(f.t, f.store.Repos().AdminUsers.Create(f.ctx, &u))
	return u
}

// newRequest stores a request in NEW with its creation history row.
func (f *fixture) newRequest(track string, mutate func(*domain.Request)) *domain.Request {
	f.t.Helper()
	now := f.clock.Now()
	rate := domain.MoneyFromMajor(4300)
	lawyerID := f.lawyer.ID
	req := &domain.Request{
		TrackNumber:      track,
		ClientName:       "ООО Клиент",
		ClientPhone:      "+79990000000",
		TopicCode:        testTopic,
		StatusCode:       domain.StatusCodeNew,
		AssignedLawyerID: &lawyerID,
		EffectiveRate:    &rate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if mutate != nil {
		mutate(req)
	}
	repos := f.store.Repos()
	require.NoError(f.t, repos.Requests.Create(f.ctx, req))
	require.NoError(f.t, repos.History.Append(f.ctx, &domain.StatusHistory{
		RequestID: req.ID, ToStatus: req.StatusCode, ChangedByRole: domain.RoleClient, CreatedAt: now,
	}))
	return req
}

func (f *fixture) adminActor() domain.Actor {
	return domain.Actor{Role: domain.RoleAdmin, ID: f.admin.ID, Email: f.admin.Email}
}

func (f *fixture) lawyerActor() domain.Actor {
	return domain.Actor{Role: domain.RoleLawyer, ID: f.lawyer.ID, Email: f.lawyer.Email}
}

func clientActor(req *domain.Request) domain.Actor {
	return domain.Actor{Role: domain.RoleClient, TrackNumber: req.TrackNumber}
}

func (f *fixture) move(actor domain.Actor, req *domain.Request, to string) *StatusChangeResult {
	f.t.Helper()
	res, err := f.statuses.ChangeStatus(f.ctx, actor, ChangeStatusInput{RequestID: req.ID, ToStatus: to})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) reload(req *domain.Request) *domain.Request {
	f.t.Helper()
	out, err := f.store.Repos().Requests.GetByID(f.ctx, req.ID)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) invoicesOf(req *domain.Request) []domain.Invoice {
	f.t.Helper()
	out, err := f.store.Repos().Invoices.ListByRequest(f.ctx, req.ID)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) notificationsOf(req *domain.Request) []domain.Notification {
	f.t.Helper()
	var out []domain.Notification
	for _, u := range []domain.AdminUser{f.admin, f.lawyer, f.lawyer2} {
		list, err := f.store.Repos().Notifications.ListForAdmin(f.ctx, u.ID, false)
		require.NoError(f.t, err)
		out = append(out, list...)
	}
	list, err := f.store.Repos().Notifications.ListForTrack(f.ctx, req.TrackNumber, false)
	require.NoError(f.t, err)
	return append(out, list...)
}
