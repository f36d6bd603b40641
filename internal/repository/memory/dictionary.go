package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type statusRepo struct{ binding }

func (r *statusRepo) Get(ctx context.Context, code string) (*domain.Status, error) {
	var out *domain.Status
	err := r.read(func(st *state) error {
		s, ok := st.statuses[code]
		if !ok {
			return repository.ErrNotFound
		}
		s.InvoiceTemplate = clonePtr(s.InvoiceTemplate)
		out = &s
		return nil
	})
	return out, err
}

func (r *statusRepo) List(ctx context.Context) ([]domain.Status, error) {
	var out []domain.Status
	err := r.read(func(st *state) error {
		for _, s := range st.statuses {
			s.InvoiceTemplate = clonePtr(s.InvoiceTemplate)
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Code < out[j].Code
	})
	return out, err
}

func (r *statusRepo) Upsert(ctx context.Context, s *domain.Status) error {
	return r.write(func(st *state) error {
		row := *s
		row.InvoiceTemplate = clonePtr(s.InvoiceTemplate)
		st.statuses[s.Code] = row
		return nil
	})
}

type transitionRepo struct{ binding }

func transitionKey(topic, from, to string) string {
	return topic + "\x00" + from + "\x00" + to
}

func cloneTransition(t domain.TopicStatusTransition) domain.TopicStatusTransition {
	out := t
	out.SLAHours = clonePtr(t.SLAHours)
	out.RequiredDataKeys = append([]string{}, t.RequiredDataKeys...)
	out.RequiredMimeTypes = append([]string{}, t.RequiredMimeTypes...)
	return out
}

func (r *transitionRepo) Get(ctx context.Context, topicCode, fromStatus, toStatus string) (*domain.TopicStatusTransition, error) {
	var out *domain.TopicStatusTransition
	err := r.read(func(st *state) error {
		t, ok := st.transitions[transitionKey(topicCode, fromStatus, toStatus)]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneTransition(t)
		out = &c
		return nil
	})
	return out, err
}

func (r *transitionRepo) ListByTopicFrom(ctx context.Context, topicCode, fromStatus string) ([]domain.TopicStatusTransition, error) {
	return r.list(func(t domain.TopicStatusTransition) bool {
		return t.TopicCode == topicCode && t.FromStatus == fromStatus
	})
}

func (r *transitionRepo) List(ctx context.Context) ([]domain.TopicStatusTransition, error) {
	return r.list(func(domain.TopicStatusTransition) bool { return true })
}

func (r *transitionRepo) list(match func(domain.TopicStatusTransition) bool) ([]domain.TopicStatusTransition, error) {
	var out []domain.TopicStatusTransition
	err := r.read(func(st *state) error {
		for _, t := range st.transitions {
			if match(t) {
				out = append(out, cloneTransition(t))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return transitionKey(out[i].TopicCode, out[i].FromStatus, out[i].ToStatus) <
			transitionKey(out[j].TopicCode, out[j].FromStatus, out[j].ToStatus)
	})
	return out, err
}

func (r *transitionRepo) Upsert(ctx context.Context, t *domain.TopicStatusTransition) error {
	return r.write(func(st *state) error {
		for _, code := range []string{t.FromStatus, t.ToStatus} {
			if _, ok := st.statuses[code]; !ok {
				return repository.ErrNotFound
			}
		}
		key := transitionKey(t.TopicCode, t.FromStatus, t.ToStatus)
		if existing, ok := st.transitions[key]; ok {
			t.ID = existing.ID
		} else if t.ID == "" {
			t.ID = uuid.NewString()
		}
		st.transitions[key] = cloneTransition(*t)
		return nil
	})
}
