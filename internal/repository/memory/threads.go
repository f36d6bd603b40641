package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type messageRepo struct{ binding }

func (r *messageRepo) Create(ctx context.Context, msg *domain.RequestMessage) error {
	return r.write(func(st *state) error {
		if _, ok := st.requests[msg.RequestID]; !ok {
			return repository.ErrNotFound
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		row := *msg
		row.AuthorID = clonePtr(msg.AuthorID)
		st.messages = append(st.messages, row)
		return nil
	})
}

func (r *messageRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestMessage, error) {
	var out []domain.RequestMessage
	err := r.read(func(st *state) error {
		for _, m := range st.messages {
			if m.RequestID == requestID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *messageRepo) FirstByRole(ctx context.Context, requestIDs []string, role domain.Role) (map[string]time.Time, error) {
	wanted := make(map[string]struct{}, len(requestIDs))
	for _, id := range requestIDs {
		wanted[id] = struct{}{}
	}
	out := make(map[string]time.Time, len(requestIDs))
	err := r.read(func(st *state) error {
		for _, m := range st.messages {
			if _, ok := wanted[m.RequestID]; !ok || m.AuthorRole != role {
				continue
			}
			if first, seen := out[m.RequestID]; !seen || m.CreatedAt.Before(first) {
				out[m.RequestID] = m.CreatedAt
			}
		}
		return nil
	})
	return out, err
}

type attachmentRepo struct{ binding }

func (r *attachmentRepo) Create(ctx context.Context, att *domain.Attachment) error {
	return r.write(func(st *state) error {
		if _, ok := st.requests[att.RequestID]; !ok {
			return repository.ErrNotFound
		}
		if att.ID == "" {
			att.ID = uuid.NewString()
		}
		row := *att
		row.MessageID = clonePtr(att.MessageID)
		st.attachments = append(st.attachments, row)
		return nil
	})
}

func (r *attachmentRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := r.read(func(st *state) error {
		for _, a := range st.attachments {
			if a.RequestID == requestID {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}
