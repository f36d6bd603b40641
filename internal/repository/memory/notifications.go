package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type notificationRepo struct{ binding }

func cloneNotification(n domain.Notification) domain.Notification {
	out := n
	out.RecipientAdminUserID = clonePtr(n.RecipientAdminUserID)
	out.RecipientTrackNumber = clonePtr(n.RecipientTrackNumber)
	out.RequestID = clonePtr(n.RequestID)
	out.ReadAt = clonePtr(n.ReadAt)
	out.DedupeKey = clonePtr(n.DedupeKey)
	return out
}

func (r *notificationRepo) CreateIfAbsent(ctx context.Context, n *domain.Notification) (bool, error) {
	if err := n.ValidateRecipient(); err != nil {
		return false, err
	}
	created := false
	err := r.write(func(st *state) error {
		if n.DedupeKey != nil {
			if _, taken := st.dedupe[*n.DedupeKey]; taken {
				return nil
			}
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		st.notifications[n.ID] = cloneNotification(*n)
		st.notifyOrder = append(st.notifyOrder, n.ID)
		if n.DedupeKey != nil {
			st.dedupe[*n.DedupeKey] = n.ID
		}
		created = true
		return nil
	})
	return created, err
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var out *domain.Notification
	err := r.read(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneNotification(n)
		out = &c
		return nil
	})
	return out, err
}

func (r *notificationRepo) ListForAdmin(ctx context.Context, adminUserID string, unreadOnly bool) ([]domain.Notification, error) {
	return r.list(func(n domain.Notification) bool {
		return n.RecipientAdminUserID != nil && *n.RecipientAdminUserID == adminUserID && (!unreadOnly || !n.IsRead)
	})
}

func (r *notificationRepo) ListForTrack(ctx context.Context, trackNumber string, unreadOnly bool) ([]domain.Notification, error) {
	return r.list(func(n domain.Notification) bool {
		return n.RecipientTrackNumber != nil && *n.RecipientTrackNumber == trackNumber && (!unreadOnly || !n.IsRead)
	})
}

// list returns matches newest first.
func (r *notificationRepo) list(match func(domain.Notification) bool) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.read(func(st *state) error {
		for i := len(st.notifyOrder) - 1; i >= 0; i-- {
			n, ok := st.notifications[st.notifyOrder[i]]
			if ok && match(n) {
				out = append(out, cloneNotification(n))
			}
		}
		return nil
	})
	return out, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.write(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok {
			return repository.ErrNotFound
		}
		n.IsRead = true
		if n.ReadAt == nil {
			n.ReadAt = &at
		}
		st.notifications[id] = n
		return nil
	})
}

func (r *notificationRepo) MarkReadForRequest(ctx context.Context, requestID string, adminUserID, trackNumber *string, at time.Time) (int64, error) {
	var changed int64
	err := r.write(func(st *state) error {
		for id, n := range st.notifications {
			if n.IsRead || n.RequestID == nil || *n.RequestID != requestID {
				continue
			}
			forAdmin := adminUserID != nil && n.RecipientAdminUserID != nil && *n.RecipientAdminUserID == *adminUserID
			forTrack := trackNumber != nil && n.RecipientTrackNumber != nil && *n.RecipientTrackNumber == *trackNumber
			if !forAdmin && !forTrack {
				continue
			}
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
			st.notifications[id] = n
			changed++
		}
		return nil
	})
	return changed, err
}
