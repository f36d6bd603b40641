// Package memory is an in-process implementation of repository.Store used
// when no Postgres DSN is configured and by service tests.
package memory

import (
	"context"
	"sync"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type state struct {
	requests      map[string]domain.Request
	trackIndex    map[string]string
	history       []domain.StatusHistory
	historySeq    int64
	invoices      map[string]domain.Invoice
	invoiceSeq    int64
	notifications map[string]domain.Notification
	notifyOrder   []string
	dedupe        map[string]string
	transitions   map[string]domain.TopicStatusTransition
	statuses      map[string]domain.Status
	messages      []domain.RequestMessage
	attachments   []domain.Attachment
	adminUsers    map[string]domain.AdminUser
}

func newState() *state {
	return &state{
		requests:      make(map[string]domain.Request),
		trackIndex:    make(map[string]string),
		invoices:      make(map[string]domain.Invoice),
		notifications: make(map[string]domain.Notification),
		dedupe:        make(map[string]string),
		transitions:   make(map[string]domain.TopicStatusTransition),
		statuses:      make(map[string]domain.Status),
		adminUsers:    make(map[string]domain.AdminUser),
	}
}

// clone copies the containers. Stored values are never mutated in place, so
// a shallow copy of each entry is enough.
func (s *state) clone() *state {
	c := &state{
		requests:      copyMap(s.requests),
		trackIndex:    copyMap(s.trackIndex),
		history:       append([]domain.StatusHistory(nil), s.history...),
		historySeq:    s.historySeq,
		invoices:      copyMap(s.invoices),
		invoiceSeq:    s.invoiceSeq,
		notifications: copyMap(s.notifications),
		notifyOrder:   append([]string(nil), s.notifyOrder...),
		dedupe:        copyMap(s.dedupe),
		transitions:   copyMap(s.transitions),
		statuses:      copyMap(s.statuses),
		messages:      append([]domain.RequestMessage(nil), s.messages...),
		attachments:   append([]domain.Attachment(nil), s.attachments...),
		adminUsers:    copyMap(s.adminUsers),
	}
	return c
}

// Store serializes every unit of work behind one lock. WithTx holds the
// write lock for the whole callback and restores a snapshot when it fails.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(s.repos(true)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) repos(inTx bool) repository.Repositories {
	b := binding{store: s, inTx: inTx}
	return repository.Repositories{
		Requests:      &requestRepo{b},
		History:       &historyRepo{b},
		Invoices:      &invoiceRepo{b},
		Notifications: &notificationRepo{b},
		Transitions:   &transitionRepo{b},
		Statuses:      &statusRepo{b},
		Messages:      &messageRepo{b},
		Attachments:   &attachmentRepo{b},
		AdminUsers:    &adminUserRepo{b},
	}
}

// binding ties a repository to the store. Repositories handed out inside
// WithTx run under the already held write lock.
type binding struct {
	store *Store
	inTx  bool
}

func (b binding) read(fn func(*state) error) error {
	if !b.inTx {
		b.store.mu.RLock()
		defer b.store.mu.RUnlock()
	}
	return fn(b.store.st)
}

func (b binding) write(fn func(*state) error) error {
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.st)
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
