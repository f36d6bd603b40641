package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type invoiceRepo struct{ binding }

func cloneInvoice(inv domain.Invoice) domain.Invoice {
	out := inv
	out.IssuedByAdminUserID = clonePtr(inv.IssuedByAdminUserID)
	out.PaidAt = clonePtr(inv.PaidAt)
	out.PaidByAdminID = clonePtr(inv.PaidByAdminID)
	return out
}

// checkUnique mirrors invoices_number_key and idx_invoices_one_waiting.
func checkUnique(st *state, inv *domain.Invoice) error {
	for id, other := range st.invoices {
		if id == inv.ID {
			continue
		}
		if other.Number == inv.Number {
			return repository.ErrDuplicate
		}
		if inv.Status == domain.InvoiceStatusWaitingPayment &&
			other.Status == domain.InvoiceStatusWaitingPayment &&
			other.RequestID == inv.RequestID {
			return repository.ErrWaitingInvoiceExists
		}
	}
	return nil
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	return r.write(func(st *state) error {
		if _, ok := st.requests[inv.RequestID]; !ok {
			return repository.ErrNotFound
		}
		if inv.ID == "" {
			inv.ID = uuid.NewString()
		}
		if err := checkUnique(st, inv); err != nil {
			inv.ID = ""
			return err
		}
		st.invoiceSeq++
		inv.Seq = st.invoiceSeq
		st.invoices[inv.ID] = cloneInvoice(*inv)
		return nil
	})
}

func (r *invoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	return r.write(func(st *state) error {
		current, ok := st.invoices[inv.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkUnique(st, inv); err != nil {
			return err
		}
		updated := cloneInvoice(*inv)
		updated.RequestID = current.RequestID
		updated.Seq = current.Seq
		updated.IssuedAt = current.IssuedAt
		updated.IssuedByAdminUserID = current.IssuedByAdminUserID
		updated.IssuedByRole = current.IssuedByRole
		st.invoices[inv.ID] = updated
		return nil
	})
}

func (r *invoiceRepo) Delete(ctx context.Context, id string) error {
	return r.write(func(st *state) error {
		if _, ok := st.invoices[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.invoices, id)
		return nil
	})
}

func (r *invoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var out *domain.Invoice
	err := r.read(func(st *state) error {
		inv, ok := st.invoices[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneInvoice(inv)
		out = &c
		return nil
	})
	return out, err
}

func (r *invoiceRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.Invoice, error) {
	var out []domain.Invoice
	err := r.read(func(st *state) error {
		for _, inv := range st.invoices {
			if inv.RequestID == requestID {
				out = append(out, cloneInvoice(inv))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, err
}
