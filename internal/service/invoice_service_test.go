package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

func TestManualInvoiceCannotDoubleWaiting(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-1", nil)
	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	f.move(f.lawyerActor(), req, "BILLING")

	_, err := f.invoices.Create(f.ctx, f.lawyerActor(), req.ID, CreateInvoiceInput{Amount: domain.MoneyFromMajor(100)})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Len(t, f.invoicesOf(req), 1)
}

func TestManualInvoiceDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	first := f.newRequest("TRK-INV-2", nil)
	second := f.newRequest("TRK-INV-3", nil)

	_, err := f.invoices.Create(f.ctx, f.adminActor(), first.ID, CreateInvoiceInput{
		Number: "INV-MANUAL-1",
		Amount: domain.MoneyFromMajor(100),
	})
	require.NoError(t, err)

	_, err = f.invoices.Create(f.ctx, f.adminActor(), second.ID, CreateInvoiceInput{
		Number: "INV-MANUAL-1",
		Amount: domain.MoneyFromMajor(200),
	})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeDuplicateInvoice, de.Code)
	assert.Equal(t, 409, de.HTTPStatus)
	assert.Empty(t, f.invoicesOf(second))
}

func TestManualInvoiceMirrorsOntoRequest(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-4", nil)

	view, err := f.invoices.Create(f.ctx, f.adminActor(), req.ID, CreateInvoiceInput{
		Amount:       domain.MoneyFromMajor(2500),
		Status:       domain.InvoiceStatusPaid,
		PayerDetails: json.RawMessage(`{"inn":"7701234567","bank_name":"Банк"}`),
	})
	require.NoError(t, err)
	require.NotNil(t, view.Details)
	assert.Equal(t, "7701234567", view.Details.INN)
	assert.Equal(t, "ООО Клиент", view.Invoice.PayerDisplayName)

	stored := f.reload(req)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, domain.MoneyFromMajor(2500), *stored.InvoiceAmount)
	assert.Equal(t, f.admin.ID, *stored.PaidByAdminID)

	got, err := f.invoices.Get(f.ctx, f.lawyerActor(), view.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Банк", got.Details.BankName)

	f.clock.Advance(time.Minute)
	canceled := domain.InvoiceStatusCanceled
	_, err = f.invoices.Update(f.ctx, f.adminActor(), view.Invoice.ID, UpdateInvoiceInput{Status: &canceled})
	require.NoError(t, err)
	stored = f.reload(req)
	assert.Nil(t, stored.PaidAt)
	assert.Nil(t, stored.PaidByAdminID)
}

func TestMarkPaidSettlesWaitingInvoice(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-5", nil)
	view, err := f.invoices.Create(f.ctx, f.lawyerActor(), req.ID, CreateInvoiceInput{Amount: domain.MoneyFromMajor(700)})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusWaitingPayment, view.Invoice.Status)

	paid, err := f.invoices.MarkPaid(f.ctx, f.adminActor(), view.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Invoice.Status)
	require.NotNil(t, f.reload(req).PaidAt)

	_, err = f.invoices.MarkPaid(f.ctx, f.adminActor(), view.Invoice.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestPaidInvoiceCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-6", nil)
	view, err := f.invoices.Create(f.ctx, f.adminActor(), req.ID, CreateInvoiceInput{
		Amount: domain.MoneyFromMajor(100),
		Status: domain.InvoiceStatusPaid,
	})
	require.NoError(t, err)

	err = f.invoices.Delete(f.ctx, f.adminActor(), view.Invoice.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Len(t, f.invoicesOf(req), 1)
}

func TestDeleteWaitingInvoice(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-7", func(r *domain.Request) { r.EffectiveRate = nil })
	view, err := f.invoices.Create(f.ctx, f.lawyerActor(), req.ID, CreateInvoiceInput{Amount: domain.MoneyFromMajor(300)})
	require.NoError(t, err)
	require.NotNil(t, f.reload(req).InvoiceAmount)

	require.NoError(t, f.invoices.Delete(f.ctx, f.lawyerActor(), view.Invoice.ID))
	assert.Empty(t, f.invoicesOf(req))
}

func TestLawyerLimitedToOwnRequests(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-8", nil)
	view, err := f.invoices.Create(f.ctx, f.lawyerActor(), req.ID, CreateInvoiceInput{Amount: domain.MoneyFromMajor(100)})
	require.NoError(t, err)

	other := domain.Actor{Role: domain.RoleLawyer, ID: f.lawyer2.ID}
	_, err = f.invoices.Create(f.ctx, other, req.ID, CreateInvoiceInput{Amount: domain.MoneyFromMajor(100)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.invoices.Get(f.ctx, other, view.Invoice.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	amount := domain.MoneyFromMajor(1)
	_, err = f.invoices.Update(f.ctx, other, view.Invoice.ID, UpdateInvoiceInput{Amount: &amount})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	err = f.invoices.Delete(f.ctx, other, view.Invoice.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.invoices.List(f.ctx, clientActor(req), req.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestInvoicePayerDetailsRejectUnknownKeys(t *testing.T) {
	f := newFixture(t)
	req := f.newRequest("TRK-INV-9", nil)
	_, err := f.invoices.Create(f.ctx, f.adminActor(), req.ID, CreateInvoiceInput{
		Amount:       domain.MoneyFromMajor(100),
		PayerDetails: json.RawMessage(`{"iban":"DE00"}`),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.invoices.Create(f.ctx, f.adminActor(), req.ID, CreateInvoiceInput{
		Amount:       domain.MoneyFromMajor(100),
		PayerDetails: json.RawMessage(`{"bik":"12"}`),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Empty(t, f.invoicesOf(req))
}
