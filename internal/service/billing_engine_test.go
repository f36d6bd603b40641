package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

func countWaiting(invoices []domain.Invoice) int {
	n := 0
	for _, inv := range invoices {
		if inv.Status == domain.InvoiceStatusWaitingPayment {
			n++
		}
	}
	return n
}

func TestEnteringInvoiceStatusRendersTemplate(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-BILL-1", nil)

	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	res := f.move(f.lawyerActor(), req, "BILLING")

	assert.Equal(t, BillingIssued, res.Billing.Action)
	invoices := f.invoicesOf(req)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, domain.InvoiceStatusWaitingPayment, inv.Status)
	assert.Equal(t, "4300.00", inv.Amount.String())
	assert.Equal(t, "ООО Клиент", inv.PayerDisplayName)
	assert.Equal(t, "RUB", inv.Currency)
	assert.Regexp(t, `^INV-20260302-[0-9A-F]{4}$`, inv.Number)
	assert.NotContains(t, inv.PayerDetails, "TRK-BILL-1")

	details, err := f.billing.OpenDetails(inv.PayerDetails)
	require.NoError(t, err)
	assert.Contains(t, details.TemplateRendered, "TRK-BILL-1")
	assert.Contains(t, details.TemplateRendered, "ООО Клиент")
	assert.Contains(t, details.TemplateRendered, "4300.00")

	stored := f.reload(req)
	require.NotNil(t, stored.InvoiceAmount)
	assert.Equal(t, domain.MoneyFromMajor(4300), *stored.InvoiceAmount)
	assert.Equal(t, "BILLING", stored.StatusCode)
}

func TestRepeatedBillingCyclesKeepFullTrail(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-CYCLE-1", nil)
	admin := f.adminActor()

	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	f.move(f.lawyerActor(), req, "BILLING")
	f.clock.Advance(time.Hour)
	f.move(admin, req, "PAID")
	firstPaidAt := f.clock.Now()

	f.clock.Advance(time.Hour)
	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	stored := f.reload(req)
	require.NotNil(t, stored.PaidAt, "payment mark survives a plain status change")
	assert.True(t, stored.PaidAt.Equal(firstPaidAt))

	newRate := domain.MoneyFromMajor(5100)
	stored.EffectiveRate = &newRate
	require.NoError(t, f.store.Repos().Requests.Update(f.ctx, stored))

	f.clock.Advance(time.Hour)
	f.move(f.lawyerActor(), req, "BILLING")
	assert.Nil(t, f.reload(req).PaidAt, "a fresh cycle clears the old payment mark")
	assert.Equal(t, 1, countWaiting(f.invoicesOf(req)))

	f.clock.Advance(time.Hour)
	f.move(admin, req, "PAID")
	secondPaidAt := f.clock.Now()

	invoices := f.invoicesOf(req)
	require.Len(t, invoices, 2)
	for _, inv := range invoices {
		assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
		require.NotNil(t, inv.PaidByAdminID)
		assert.Equal(t, f.admin.ID, *inv.PaidByAdminID)
	}
	assert.Equal(t, domain.MoneyFromMajor(4300), invoices[0].Amount)
	assert.Equal(t, domain.MoneyFromMajor(5100), invoices[1].Amount)
	assert.NotEqual(t, invoices[0].Number, invoices[1].Number)

	stored = f.reload(req)
	require.NotNil(t, stored.InvoiceAmount)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, domain.MoneyFromMajor(5100), *stored.InvoiceAmount)
	assert.True(t, stored.PaidAt.Equal(secondPaidAt))
	require.NotNil(t, stored.PaidByAdminID)
	assert.Equal(t, f.admin.ID, *stored.PaidByAdminID)
}

func TestReenteringInvoiceStatusRefreshesWaitingInvoice(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-REFRESH", nil)
	lawyer := f.lawyerActor()

	f.move(lawyer, req, "IN_PROGRESS")
	first := f.move(lawyer, req, "BILLING")
	f.move(lawyer, req, "IN_PROGRESS")

	stored := f.reload(req)
	rate := domain.MoneyFromMajor(6000)
	stored.EffectiveRate = &rate
	require.NoError(t, f.store.Repos().Requests.Update(f.ctx, stored))

	second := f.move(lawyer, req, "BILLING")
	assert.Equal(t, BillingRefreshed, second.Billing.Action)
	assert.Equal(t, first.Billing.Invoice.ID, second.Billing.Invoice.ID)

	invoices := f.invoicesOf(req)
	require.Len(t, invoices, 1)
	assert.Equal(t, 1, countWaiting(invoices))
	assert.Equal(t, domain.MoneyFromMajor(6000), invoices[0].Amount)
}

func TestLawyerCannotConfirmPayment(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-GATE", nil)
	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	f.move(f.lawyerActor(), req, "BILLING")

	beforeReq := f.reload(req)
	beforeInvoices := f.invoicesOf(req)
	history, err := f.store.Repos().History.ListByRequest(f.ctx, req.ID)
	require.NoError(t, err)

	_, err = f.statuses.ChangeStatus(f.ctx, f.lawyerActor(), ChangeStatusInput{RequestID: req.ID, ToStatus: "PAID"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.invoices.MarkPaid(f.ctx, f.lawyerActor(), beforeInvoices[0].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	paid := domain.InvoiceStatusPaid
	_, err = f.invoices.Update(f.ctx, f.lawyerActor(), beforeInvoices[0].ID, UpdateInvoiceInput{Status: &paid})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	assert.Equal(t, beforeReq, f.reload(req))
	assert.Equal(t, beforeInvoices, f.invoicesOf(req))
	after, err := f.store.Repos().History.ListByRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(history))
}

func TestPaymentRequiresWaitingInvoice(t *testing.T) {
	f := newFixture(t)
	f.addTransition("IN_PROGRESS", "PAID", nil)
	req := f.newRequest("TRK-NOWAIT", nil)
	f.move(f.lawyerActor(), req, "IN_PROGRESS")

	_, err := f.statuses.ChangeStatus(f.ctx, f.adminActor(), ChangeStatusInput{RequestID: req.ID, ToStatus: "PAID"})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeNoWaitingInvoice, de.Code)
	assert.Equal(t, 409, de.HTTPStatus)
	assert.Contains(t, de.Message, "Ожидает оплату")
	assert.Equal(t, "IN_PROGRESS", f.reload(req).StatusCode)
}

func TestBillingWithoutRateIsRejected(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-NORATE", func(r *domain.Request) { r.EffectiveRate = nil })
	f.move(f.lawyerActor(), req, "IN_PROGRESS")

	_, err := f.statuses.ChangeStatus(f.ctx, f.lawyerActor(), ChangeStatusInput{RequestID: req.ID, ToStatus: "BILLING"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, "IN_PROGRESS", f.reload(req).StatusCode)
	assert.Empty(t, f.invoicesOf(req))
}

func TestBillingFallsBackToInvoiceAmount(t *testing.T) {
	f := newFixture(t)
	amount := domain.MoneyFromMajor(1500)
	req := f.newRequest("TRK-FALLBACK", func(r *domain.Request) {
		r.EffectiveRate = nil
		r.InvoiceAmount = &amount
	})
	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	res := f.move(f.lawyerActor(), req, "BILLING")
	require.NotNil(t, res.Billing.Invoice)
	assert.Equal(t, amount, res.Billing.Invoice.Amount)
}

func TestMirrorInvoicesFollowsLatest(t *testing.T) {
	paidAt := testEpoch.Add(time.Hour)
	admin := "admin-1"
	req := &domain.Request{PaidAt: &testEpoch}
	invoices := []domain.Invoice{
		{Status: domain.InvoiceStatusPaid, Amount: 100, PaidAt: &paidAt, PaidByAdminID: &admin},
		{Status: domain.InvoiceStatusCanceled, Amount: 999},
	}

	MirrorInvoices(req, invoices)
	require.NotNil(t, req.InvoiceAmount)
	assert.Equal(t, domain.Money(100), *req.InvoiceAmount)
	require.NotNil(t, req.PaidAt)
	assert.True(t, req.PaidAt.Equal(paidAt))

	invoices = append(invoices, domain.Invoice{Status: domain.InvoiceStatusWaitingPayment, Amount: 200})
	MirrorInvoices(req, invoices)
	assert.Equal(t, domain.Money(200), *req.InvoiceAmount)
	assert.Nil(t, req.PaidAt)
	assert.Nil(t, req.PaidByAdminID)
}
