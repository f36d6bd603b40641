package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/observability"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// InvoiceService exposes manual invoice management to staff.
type InvoiceService struct {
	store    repository.Store
	billing  *BillingEngine
	notifier *NotificationService
	clock    clock.Clock
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// InvoiceDependencies bundles collaborators for the invoice service.
type InvoiceDependencies struct {
	Store    repository.Store
	Billing  *BillingEngine
	Notifier *NotificationService
	Clock    clock.Clock
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(deps InvoiceDependencies) *InvoiceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		store:    deps.Store,
		billing:  deps.Billing,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// InvoiceView is an invoice with decrypted requisites.
type InvoiceView struct {
	Invoice domain.Invoice
	Details *domain.PayerDetails
}

// CreateInvoiceInput describes a manually issued invoice. An empty number is
// generated.
type CreateInvoiceInput struct {
	Number           string
	Amount           domain.Money
	Status           domain.InvoiceStatus
	PayerDisplayName string
	PayerDetails     json.RawMessage
}

// UpdateInvoiceInput carries optional invoice changes.
type UpdateInvoiceInput struct {
	Amount           *domain.Money
	Status           *domain.InvoiceStatus
	PayerDisplayName *string
	PayerDetails     json.RawMessage
}

// List returns the request's invoices in issue order.
func (s *InvoiceService) List(ctx context.Context, actor domain.Actor, requestID string) ([]InvoiceView, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff only")
	}
	repos := s.store.Repos()
	req, err := repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "request")
	}
	if err := authorizeRequest(actor, req); err != nil {
		return nil, err
	}
	invoices, err := repos.Invoices.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	views := make([]InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		view, err := s.view(inv)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns one invoice.
func (s *InvoiceService) Get(ctx context.Context, actor domain.Actor, id string) (*InvoiceView, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff only")
	}
	repos := s.store.Repos()
	inv, err := repos.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	req, err := repos.Requests.GetByID(ctx, inv.RequestID)
	if err != nil {
		return nil, notFound(err, "request")
	}
	if err := authorizeRequest(actor, req); err != nil {
		return nil, err
	}
	view, err := s.view(*inv)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Create issues an invoice by hand.
func (s *InvoiceService) Create(ctx context.Context, actor domain.Actor, requestID string, in CreateInvoiceInput) (*InvoiceView, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff only")
	}
	if in.Status == "" {
		in.Status = domain.InvoiceStatusWaitingPayment
	}
	if !in.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown invoice status", map[string]any{"status": in.Status})
	}
	if in.Status == domain.InvoiceStatusPaid && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only an administrator can mark invoices paid")
	}
	if in.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"field": "amount"})
	}
	details, err := ParsePayerDetails(in.PayerDetails)
	if err != nil {
		return nil, err
	}

	outbox := s.notifier.NewOutbox()
	var inv *domain.Invoice
	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		req, err := s.lockRequest(ctx, repos, actor, requestID)
		if err != nil {
			return err
		}
		sealed, err := s.billing.seal(details)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		inv = &domain.Invoice{
			RequestID:           req.ID,
			Status:              in.Status,
			Amount:              in.Amount,
			Currency:            s.billing.cfg.Currency,
			PayerDisplayName:    firstNonEmpty(strings.TrimSpace(in.PayerDisplayName), req.ClientName),
			PayerDetails:        sealed,
			IssuedByAdminUserID: staffIDPtr(actor),
			IssuedByRole:        actor.Role,
			IssuedAt:            now,
			UpdatedAt:           now,
		}
		if inv.Status == domain.InvoiceStatusPaid {
			inv.PaidAt = &now
			inv.PaidByAdminID = actorIDPtr(actor)
		}
		if err := s.billing.insert(ctx, repos, inv, strings.TrimSpace(in.Number)); err != nil {
			return err
		}
		if err := s.mirror(ctx, repos, req); err != nil {
			return err
		}
		return s.notifyInvoice(ctx, repos, outbox, req, actor, inv, "Выставлен счет")
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(ctx)
	s.metrics.RecordInvoice("created")
	return &InvoiceView{Invoice: *inv, Details: &details}, nil
}

// Update edits an invoice. Lawyers can neither set nor unset PAID.
func (s *InvoiceService) Update(ctx context.Context, actor domain.Actor, id string, in UpdateInvoiceInput) (*InvoiceView, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff only")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown invoice status", map[string]any{"status": *in.Status})
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"field": "amount"})
	}
	var details *domain.PayerDetails
	if len(in.PayerDetails) > 0 {
		parsed, err := ParsePayerDetails(in.PayerDetails)
		if err != nil {
			return nil, err
		}
		details = &parsed
	}

	var inv *domain.Invoice
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "invoice")
		}
		req, err := s.lockRequest(ctx, repos, actor, inv.RequestID)
		if err != nil {
			return err
		}
		touchesPaid := inv.Status == domain.InvoiceStatusPaid || (in.Status != nil && *in.Status == domain.InvoiceStatusPaid)
		if touchesPaid && actor.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("only an administrator can change paid invoices")
		}

		now := s.clock.Now()
		if in.Amount != nil {
			inv.Amount = *in.Amount
		}
		if in.PayerDisplayName != nil {
			inv.PayerDisplayName = strings.TrimSpace(*in.PayerDisplayName)
		}
		if details != nil {
			sealed, err := s.billing.seal(*details)
			if err != nil {
				return err
			}
			inv.PayerDetails = sealed
		}
		if in.Status != nil && *in.Status != inv.Status {
			if *in.Status == domain.InvoiceStatusPaid {
				inv.PaidAt = &now
				inv.PaidByAdminID = actorIDPtr(actor)
			} else {
				inv.PaidAt = nil
				inv.PaidByAdminID = nil
			}
			inv.Status = *in.Status
		}
		inv.UpdatedAt = now
		if err := s.save(ctx, repos, inv); err != nil {
			return err
		}
		return s.mirror(ctx, repos, req)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordInvoice("updated")
	view, err := s.view(*inv)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Delete removes an unpaid invoice.
func (s *InvoiceService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.Role.IsStaff() {
		return apperrors.NewForbidden("staff only")
	}
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		inv, err := repos.Invoices.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "invoice")
		}
		req, err := s.lockRequest(ctx, repos, actor, inv.RequestID)
		if err != nil {
			return err
		}
		if inv.Status == domain.InvoiceStatusPaid {
			return apperrors.NewConflict("paid invoices cannot be deleted", map[string]any{"invoice_id": inv.ID})
		}
		if err := repos.Invoices.Delete(ctx, inv.ID); err != nil {
			return notFound(err, "invoice")
		}
		return s.mirror(ctx, repos, req)
	})
	if err == nil {
		s.metrics.RecordInvoice("deleted")
	}
	return err
}

// MarkPaid settles a waiting invoice. Admin only.
func (s *InvoiceService) MarkPaid(ctx context.Context, actor domain.Actor, id string) (*InvoiceView, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only an administrator can mark invoices paid")
	}
	outbox := s.notifier.NewOutbox()
	var inv *domain.Invoice
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "invoice")
		}
		req, err := s.lockRequest(ctx, repos, actor, inv.RequestID)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvoiceStatusWaitingPayment {
			return apperrors.NewConflict("invoice is not waiting for payment", map[string]any{"status": inv.Status})
		}
		now := s.clock.Now()
		inv.Status = domain.InvoiceStatusPaid
		inv.PaidAt = &now
		inv.PaidByAdminID = actorIDPtr(actor)
		inv.UpdatedAt = now
		if err := s.save(ctx, repos, inv); err != nil {
			return err
		}
		if err := s.mirror(ctx, repos, req); err != nil {
			return err
		}
		return s.notifyInvoice(ctx, repos, outbox, req, actor, inv, "Счет оплачен")
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(ctx)
	s.metrics.RecordInvoice(BillingPaid)
	view, err := s.view(*inv)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// lockRequest loads and locks the invoice's request and checks actor access.
func (s *InvoiceService) lockRequest(ctx context.Context, repos repository.Repositories, actor domain.Actor, requestID string) (*domain.Request, error) {
	req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "request")
	}
	if err := authorizeRequest(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *InvoiceService) save(ctx context.Context, repos repository.Repositories, inv *domain.Invoice) error {
	err := repos.Invoices.Update(ctx, inv)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrWaitingInvoiceExists):
		return apperrors.NewConflict("request already has an invoice waiting for payment", map[string]any{"request_id": inv.RequestID})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicateInvoiceNumber(inv.Number)
	default:
		return fmt.Errorf("update invoice: %w", err)
	}
}

// mirror re-derives the request's financial fields from its invoices.
func (s *InvoiceService) mirror(ctx context.Context, repos repository.Repositories, req *domain.Request) error {
	invoices, err := repos.Invoices.ListByRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	MirrorInvoices(req, invoices)
	return repos.Requests.Update(ctx, req)
}

func (s *InvoiceService) notifyInvoice(ctx context.Context, repos repository.Repositories, outbox *Outbox, req *domain.Request, actor domain.Actor, inv *domain.Invoice, title string) error {
	_, err := s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
		Type:  domain.EventInvoice,
		Actor: actor,
		Title: title,
		Body:  fmt.Sprintf("%s: %s %s", inv.Number, inv.Amount, inv.Currency),
	})
	return err
}

func (s *InvoiceService) view(inv domain.Invoice) (InvoiceView, error) {
	details, err := s.billing.OpenDetails(inv.PayerDetails)
	if err != nil {
		s.logger.Error("payer details unreadable", zap.String("invoice_id", inv.ID), zap.Error(err))
		return InvoiceView{}, apperrors.NewInternalError(err)
	}
	return InvoiceView{Invoice: inv, Details: details}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
