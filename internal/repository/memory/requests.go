package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type requestRepo struct{ binding }

func cloneRequest(r domain.Request) domain.Request {
	out := r
	out.ExtraFields = copyMap(r.ExtraFields)
	out.AssignedLawyerID = clonePtr(r.AssignedLawyerID)
	out.EffectiveRate = clonePtr(r.EffectiveRate)
	out.InvoiceAmount = clonePtr(r.InvoiceAmount)
	out.RequestCost = clonePtr(r.RequestCost)
	out.PaidAt = clonePtr(r.PaidAt)
	out.PaidByAdminID = clonePtr(r.PaidByAdminID)
	out.ClientUnreadEventType = clonePtr(r.ClientUnreadEventType)
	out.LawyerUnreadEventType = clonePtr(r.LawyerUnreadEventType)
	return out
}

func (r *requestRepo) Create(ctx context.Context, req *domain.Request) error {
	return r.write(func(st *state) error {
		if _, taken := st.trackIndex[req.TrackNumber]; taken {
			return repository.ErrDuplicate
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if req.ExtraFields == nil {
			req.ExtraFields = map[string]string{}
		}
		st.requests[req.ID] = cloneRequest(*req)
		st.trackIndex[req.TrackNumber] = req.ID
		return nil
	})
}

func (r *requestRepo) Update(ctx context.Context, req *domain.Request) error {
	return r.write(func(st *state) error {
		current, ok := st.requests[req.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := cloneRequest(*req)
		updated.TrackNumber = current.TrackNumber
		updated.CreatedAt = current.CreatedAt
		st.requests[req.ID] = updated
		return nil
	})
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	var out *domain.Request
	err := r.read(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneRequest(req)
		out = &c
		return nil
	})
	return out, err
}

// GetByIDForUpdate relies on the store-wide lock held by WithTx.
func (r *requestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *requestRepo) GetByTrackNumber(ctx context.Context, track string) (*domain.Request, error) {
	var out *domain.Request
	err := r.read(func(st *state) error {
		id, ok := st.trackIndex[track]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneRequest(st.requests[id])
		out = &c
		return nil
	})
	return out, err
}

func (r *requestRepo) ListActive(ctx context.Context, terminalStatuses []string) ([]domain.Request, error) {
	terminal := make(map[string]struct{}, len(terminalStatuses))
	for _, code := range terminalStatuses {
		terminal[code] = struct{}{}
	}
	var out []domain.Request
	err := r.read(func(st *state) error {
		for _, req := range st.requests {
			if _, skip := terminal[req.StatusCode]; skip {
				continue
			}
			out = append(out, cloneRequest(req))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

type historyRepo struct{ binding }

func (r *historyRepo) Append(ctx context.Context, entry *domain.StatusHistory) error {
	return r.write(func(st *state) error {
		if _, ok := st.requests[entry.RequestID]; !ok {
			return repository.ErrNotFound
		}
		st.historySeq++
		entry.Seq = st.historySeq
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		row := *entry
		row.FromStatus = clonePtr(entry.FromStatus)
		row.ChangedByID = clonePtr(entry.ChangedByID)
		st.history = append(st.history, row)
		return nil
	})
}

func (r *historyRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistory, error) {
	grouped, err := r.ListByRequests(ctx, []string{requestID})
	if err != nil {
		return nil, err
	}
	return grouped[requestID], nil
}

func (r *historyRepo) ListByRequests(ctx context.Context, requestIDs []string) (map[string][]domain.StatusHistory, error) {
	wanted := make(map[string]struct{}, len(requestIDs))
	for _, id := range requestIDs {
		wanted[id] = struct{}{}
	}
	out := make(map[string][]domain.StatusHistory, len(requestIDs))
	err := r.read(func(st *state) error {
		for _, h := range st.history {
			if _, ok := wanted[h.RequestID]; ok {
				out[h.RequestID] = append(out[h.RequestID], h)
			}
		}
		return nil
	})
	for id := range out {
		domain.SortHistory(out[id])
	}
	return out, err
}
