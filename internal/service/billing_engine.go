package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	"github.com/TronoSfera/Law-sub001/internal/secure"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// BillingConfig controls invoice numbering and currency.
type BillingConfig struct {
	Currency     string
	NumberPrefix string
}

const (
	numberSuffixLen      = 4
	numberRetrySuffixLen = 8
)

// Billing actions reported by the engine.
const (
	BillingNone      = ""
	BillingIssued    = "issued"
	BillingRefreshed = "refreshed"
	BillingPaid      = "paid"
	BillingCleared   = "cleared"
)

// BillingOutcome describes the side effect of entering a status.
type BillingOutcome struct {
	Action  string
	Invoice *domain.Invoice
}

// BillingEngine applies the invoice side effects of a status kind. It runs
// inside the status-change transaction and mutates the request in memory;
// the caller persists the request.
type BillingEngine struct {
	box    *secure.Box
	clock  clock.Clock
	cfg    BillingConfig
	logger *zap.Logger
}

// NewBillingEngine constructs the engine.
func NewBillingEngine(box *secure.Box, clk clock.Clock, cfg BillingConfig, logger *zap.Logger) *BillingEngine {
	if cfg.Currency == "" {
		cfg.Currency = "RUB"
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "INV"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingEngine{box: box, clock: clk, cfg: cfg, logger: logger}
}

// Apply runs the side effect for entering target.
func (e *BillingEngine) Apply(ctx context.Context, repos repository.Repositories, req *domain.Request, target *domain.Status, actor domain.Actor) (BillingOutcome, error) {
	switch target.Kind {
	case domain.StatusKindInvoice:
		return e.issue(ctx, repos, req, target, actor)
	case domain.StatusKindPaid:
		return e.settle(ctx, repos, req, actor)
	default:
		return e.reconcilePaid(ctx, repos, req)
	}
}

// issue creates the waiting invoice for the cycle, or refreshes the one
// already waiting so a request never carries two.
func (e *BillingEngine) issue(ctx context.Context, repos repository.Repositories, req *domain.Request, target *domain.Status, actor domain.Actor) (BillingOutcome, error) {
	amount, err := billableAmount(req)
	if err != nil {
		return BillingOutcome{}, err
	}

	invoices, err := repos.Invoices.ListByRequest(ctx, req.ID)
	if err != nil {
		return BillingOutcome{}, fmt.Errorf("list invoices: %w", err)
	}
	waiting := waitingInvoices(invoices)

	template := ""
	if target.InvoiceTemplate != nil {
		template = *target.InvoiceTemplate
	}
	sealed, err := e.sealDetails(req, amount, RenderInvoiceTemplate(template, req, amount))
	if err != nil {
		return BillingOutcome{}, err
	}
	now := e.clock.Now()

	if len(waiting) > 0 {
		inv := waiting[len(waiting)-1]
		inv.Amount = amount
		inv.PayerDisplayName = req.ClientName
		inv.PayerDetails = sealed
		inv.UpdatedAt = now
		if err := repos.Invoices.Update(ctx, &inv); err != nil {
			return BillingOutcome{}, fmt.Errorf("refresh invoice: %w", err)
		}
		req.InvoiceAmount = moneyPtr(inv.Amount)
		clearPaid(req)
		return BillingOutcome{Action: BillingRefreshed, Invoice: &inv}, nil
	}

	inv := &domain.Invoice{
		RequestID:           req.ID,
		Status:              domain.InvoiceStatusWaitingPayment,
		Amount:              amount,
		Currency:            e.cfg.Currency,
		PayerDisplayName:    req.ClientName,
		PayerDetails:        sealed,
		IssuedByAdminUserID: staffIDPtr(actor),
		IssuedByRole:        actor.Role,
		IssuedAt:            now,
		UpdatedAt:           now,
	}
	if err := e.insert(ctx, repos, inv, ""); err != nil {
		return BillingOutcome{}, err
	}
	req.InvoiceAmount = moneyPtr(inv.Amount)
	clearPaid(req)
	e.logger.Info("invoice issued",
		zap.String("request_id", req.ID),
		zap.String("track_number", req.TrackNumber),
		zap.String("number", inv.Number),
		zap.String("amount", inv.Amount.String()),
	)
	return BillingOutcome{Action: BillingIssued, Invoice: inv}, nil
}

// settle pays the single waiting invoice. Only administrators may do this.
func (e *BillingEngine) settle(ctx context.Context, repos repository.Repositories, req *domain.Request, actor domain.Actor) (BillingOutcome, error) {
	if actor.Role != domain.RoleAdmin {
		return BillingOutcome{}, apperrors.NewForbidden("only an administrator can confirm payment")
	}
	invoices, err := repos.Invoices.ListByRequest(ctx, req.ID)
	if err != nil {
		return BillingOutcome{}, fmt.Errorf("list invoices: %w", err)
	}
	waiting := waitingInvoices(invoices)
	if len(waiting) != 1 {
		return BillingOutcome{}, apperrors.NewNoWaitingInvoice(req.ID, len(waiting))
	}

	inv := waiting[0]
	now := e.clock.Now()
	inv.Status = domain.InvoiceStatusPaid
	inv.PaidAt = &now
	inv.PaidByAdminID = actorIDPtr(actor)
	inv.UpdatedAt = now
	if err := repos.Invoices.Update(ctx, &inv); err != nil {
		return BillingOutcome{}, fmt.Errorf("settle invoice: %w", err)
	}

	paidAt := now
	req.PaidAt = &paidAt
	req.PaidByAdminID = actorIDPtr(actor)
	req.InvoiceAmount = moneyPtr(inv.Amount)
	e.logger.Info("invoice paid",
		zap.String("request_id", req.ID),
		zap.String("number", inv.Number),
		zap.String("paid_by", actor.ID),
	)
	return BillingOutcome{Action: BillingPaid, Invoice: &inv}, nil
}

// reconcilePaid clears the request's payment mark when it no longer matches
// the latest paid invoice.
func (e *BillingEngine) reconcilePaid(ctx context.Context, repos repository.Repositories, req *domain.Request) (BillingOutcome, error) {
	if req.PaidAt == nil {
		return BillingOutcome{}, nil
	}
	invoices, err := repos.Invoices.ListByRequest(ctx, req.ID)
	if err != nil {
		return BillingOutcome{}, fmt.Errorf("list invoices: %w", err)
	}
	latest := latestPaidInvoice(invoices)
	if latest != nil && latest.PaidAt != nil && latest.PaidAt.Equal(*req.PaidAt) {
		return BillingOutcome{}, nil
	}
	clearPaid(req)
	return BillingOutcome{Action: BillingCleared}, nil
}

// insert stores inv with a generated number unless one is given. A clash on a
// generated number is retried once with a longer suffix.
func (e *BillingEngine) insert(ctx context.Context, repos repository.Repositories, inv *domain.Invoice, number string) error {
	generated := number == ""
	if generated {
		number = e.invoiceNumber(numberSuffixLen)
	}
	inv.Number = number

	err := repos.Invoices.Create(ctx, inv)
	if errors.Is(err, repository.ErrDuplicate) && generated {
		e.logger.Warn("invoice number clash, regenerating", zap.String("number", inv.Number))
		inv.Number = e.invoiceNumber(numberRetrySuffixLen)
		err = repos.Invoices.Create(ctx, inv)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicateInvoiceNumber(inv.Number)
	case errors.Is(err, repository.ErrWaitingInvoiceExists):
		return apperrors.NewConflict("request already has an invoice waiting for payment", map[string]any{"request_id": inv.RequestID})
	default:
		return fmt.Errorf("create invoice: %w", err)
	}
}

func (e *BillingEngine) invoiceNumber(suffixLen int) string {
	return fmt.Sprintf("%s-%s-%s", e.cfg.NumberPrefix, e.clock.Now().Format("20060102"), randomSuffix(suffixLen))
}

func (e *BillingEngine) sealDetails(req *domain.Request, amount domain.Money, rendered string) (string, error) {
	details := domain.PayerDetails{
		TrackNumber:      req.TrackNumber,
		ClientName:       req.ClientName,
		Email:            req.ClientEmail,
		Phone:            req.ClientPhone,
		Amount:           amount.String(),
		TemplateRendered: rendered,
	}
	return e.seal(details)
}

func (e *BillingEngine) seal(details domain.PayerDetails) (string, error) {
	token, err := e.box.Seal(details)
	if err != nil {
		return "", fmt.Errorf("seal payer details: %w", err)
	}
	return token, nil
}

// OpenDetails decrypts stored requisites; an empty token yields nil.
func (e *BillingEngine) OpenDetails(token string) (*domain.PayerDetails, error) {
	if token == "" {
		return nil, nil
	}
	var details domain.PayerDetails
	if err := e.box.Open(token, &details); err != nil {
		return nil, fmt.Errorf("open payer details: %w", err)
	}
	return &details, nil
}

// billableAmount picks effective_rate, falling back to invoice_amount.
func billableAmount(req *domain.Request) (domain.Money, error) {
	var amount domain.Money
	switch {
	case req.EffectiveRate != nil && *req.EffectiveRate > 0:
		amount = *req.EffectiveRate
	case req.InvoiceAmount != nil:
		amount = *req.InvoiceAmount
	}
	if amount <= 0 {
		return 0, apperrors.NewValidationError("effective_rate must be set to a positive amount before billing",
			map[string]any{"field": "effective_rate"})
	}
	return amount, nil
}

func waitingInvoices(invoices []domain.Invoice) []domain.Invoice {
	var out []domain.Invoice
	for _, inv := range invoices {
		if inv.Status == domain.InvoiceStatusWaitingPayment {
			out = append(out, inv)
		}
	}
	return out
}

// latestPaidInvoice returns the last paid invoice in (issued_at, seq) order.
func latestPaidInvoice(invoices []domain.Invoice) *domain.Invoice {
	for i := len(invoices) - 1; i >= 0; i-- {
		if invoices[i].Status == domain.InvoiceStatusPaid {
			inv := invoices[i]
			return &inv
		}
	}
	return nil
}

// MirrorInvoices copies the financial state of the latest invoices onto req:
// invoice_amount follows the newest non-canceled invoice, and the payment
// mark follows the newest paid invoice unless a newer invoice is waiting.
func MirrorInvoices(req *domain.Request, invoices []domain.Invoice) {
	var latest *domain.Invoice
	for i := len(invoices) - 1; i >= 0; i-- {
		if invoices[i].Status != domain.InvoiceStatusCanceled {
			inv := invoices[i]
			latest = &inv
			break
		}
	}
	if latest != nil {
		req.InvoiceAmount = moneyPtr(latest.Amount)
	}

	paid := latestPaidInvoice(invoices)
	if paid == nil || paid.PaidAt == nil || (latest != nil && latest.Status == domain.InvoiceStatusWaitingPayment) {
		clearPaid(req)
		return
	}
	paidAt := *paid.PaidAt
	req.PaidAt = &paidAt
	req.PaidByAdminID = paid.PaidByAdminID
}

func clearPaid(req *domain.Request) {
	req.PaidAt = nil
	req.PaidByAdminID = nil
}

func moneyPtr(m domain.Money) *domain.Money {
	return &m
}

// staffIDPtr returns the actor id for admin-portal users only; the column
// references admin_users.
func staffIDPtr(actor domain.Actor) *string {
	if !actor.Role.IsStaff() {
		return nil
	}
	return actorIDPtr(actor)
}
