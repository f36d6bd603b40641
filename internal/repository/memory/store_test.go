package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

func seedRequest(t *testing.T, s *Store) *domain.Request {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	req := &domain.Request{
		TrackNumber: "TRK-0001",
		ClientName:  "Иван",
		TopicCode:   "civil",
		StatusCode:  domain.StatusCodeNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Repos().Requests.Create(context.Background(), req))
	return req
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	req := seedRequest(t, s)
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(repos repository.Repositories) error {
		locked, err := repos.Requests.GetByIDForUpdate(context.Background(), req.ID)
		require.NoError(t, err)
		locked.StatusCode = "IN_PROGRESS"
		require.NoError(t, repos.Requests.Update(context.Background(), locked))
		require.NoError(t, repos.History.Append(context.Background(), &domain.StatusHistory{
			RequestID: req.ID, ToStatus: "IN_PROGRESS", ChangedByRole: domain.RoleAdmin,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.Repos().Requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCodeNew, stored.StatusCode)

	history, err := s.Repos().History.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	req := seedRequest(t, s)

	err := s.WithTx(context.Background(), func(repos repository.Repositories) error {
		req.StatusCode = "IN_PROGRESS"
		return repos.Requests.Update(context.Background(), req)
	})
	require.NoError(t, err)

	stored, err := s.Repos().Requests.GetByTrackNumber(context.Background(), "TRK-0001")
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", stored.StatusCode)
}

func TestReturnedRequestIsACopy(t *testing.T) {
	s := New()
	req := seedRequest(t, s)

	got, err := s.Repos().Requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	got.ExtraFields["passport"] = "1234"

	again, err := s.Repos().Requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.NotContains(t, again.ExtraFields, "passport")
}

func TestNotificationDedupe(t *testing.T) {
	s := New()
	repo := s.Repos().Notifications
	admin := "a1"
	key := "sla:r1:NEW:1:a1"

	created, err := repo.CreateIfAbsent(context.Background(), &domain.Notification{
		RecipientAdminUserID: &admin, EventType: domain.EventSLAOverdue, Title: "t", DedupeKey: &key,
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(context.Background(), &domain.Notification{
		RecipientAdminUserID: &admin, EventType: domain.EventSLAOverdue, Title: "t", DedupeKey: &key,
	})
	require.NoError(t, err)
	assert.False(t, created)

	list, err := repo.ListForAdmin(context.Background(), admin, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotificationRecipientBinding(t *testing.T) {
	s := New()
	admin, track := "a1", "TRK-1"
	_, err := s.Repos().Notifications.CreateIfAbsent(context.Background(), &domain.Notification{
		RecipientAdminUserID: &admin, RecipientTrackNumber: &track, Title: "t",
	})
	assert.ErrorIs(t, err, domain.ErrRecipientBinding)

	_, err = s.Repos().Notifications.CreateIfAbsent(context.Background(), &domain.Notification{Title: "t"})
	assert.ErrorIs(t, err, domain.ErrRecipientBinding)
}

func TestInvoiceConstraints(t *testing.T) {
	s := New()
	req := seedRequest(t, s)
	repo := s.Repos().Invoices
	now := time.Now().UTC()

	first := &domain.Invoice{RequestID: req.ID, Number: "INV-1", Status: domain.InvoiceStatusWaitingPayment, Amount: 100, IssuedAt: now}
	require.NoError(t, repo.Create(context.Background(), first))
	assert.Equal(t, int64(1), first.Seq)

	dupNumber := &domain.Invoice{RequestID: req.ID, Number: "INV-1", Status: domain.InvoiceStatusPaid, Amount: 100, IssuedAt: now}
	assert.ErrorIs(t, repo.Create(context.Background(), dupNumber), repository.ErrDuplicate)

	secondWaiting := &domain.Invoice{RequestID: req.ID, Number: "INV-2", Status: domain.InvoiceStatusWaitingPayment, Amount: 100, IssuedAt: now}
	assert.ErrorIs(t, repo.Create(context.Background(), secondWaiting), repository.ErrWaitingInvoiceExists)

	first.Status = domain.InvoiceStatusPaid
	require.NoError(t, repo.Update(context.Background(), first))
	require.NoError(t, repo.Create(context.Background(), secondWaiting))

	list, err := repo.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "INV-1", list[0].Number)
	assert.Equal(t, "INV-2", list[1].Number)
}

func TestHistoryOrderingBreaksTiesBySeq(t *testing.T) {
	s := New()
	req := seedRequest(t, s)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, to := range []string{"IN_PROGRESS", "BILLING", "PAID"} {
		require.NoError(t, s.Repos().History.Append(context.Background(), &domain.StatusHistory{
			RequestID: req.ID, ToStatus: to, ChangedByRole: domain.RoleAdmin, CreatedAt: at,
		}))
	}

	rows, err := s.Repos().History.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"IN_PROGRESS", "BILLING", "PAID"}, []string{rows[0].ToStatus, rows[1].ToStatus, rows[2].ToStatus})
}

func TestNotFound(t *testing.T) {
	s := New()
	_, err := s.Repos().Requests.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Repos().Transitions.Get(context.Background(), "civil", "NEW", "PAID")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
