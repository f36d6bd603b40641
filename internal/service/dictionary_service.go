package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

const (
	statusesCacheKey    = "statuses"
	transitionsCacheKey = "transitions"
)

var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)

// DictionaryService administers statuses and the per-topic transition graph.
// Reads are cached; every write invalidates the cache.
type DictionaryService struct {
	store  repository.Store
	cache  *cache.Cache
	clock  clock.Clock
	logger *zap.Logger
}

// NewDictionaryService constructs the service. ttl bounds how stale a cached
// read can be when another replica writes.
func NewDictionaryService(store repository.Store, clk clock.Clock, ttl time.Duration, logger *zap.Logger) *DictionaryService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DictionaryService{
		store:  store,
		cache:  cache.New(ttl, 2*ttl),
		clock:  clk,
		logger: logger,
	}
}

// StatusInput is an admin-supplied status definition.
type StatusInput struct {
	Code            string
	Name            string
	Kind            domain.StatusKind
	InvoiceTemplate *string
	IsTerminal      bool
	SortOrder       int
}

// TransitionInput is an admin-supplied transition edge.
type TransitionInput struct {
	TopicCode         string
	FromStatus        string
	ToStatus          string
	Enabled           bool
	SLAHours          *int
	RequiredDataKeys  []string
	RequiredMimeTypes []string
}

// ListStatuses returns the status dictionary ordered by sort order.
func (s *DictionaryService) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	if cached, ok := s.cache.Get(statusesCacheKey); ok {
		return cached.([]domain.Status), nil
	}
	statuses, err := s.store.Repos().Statuses.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(statuses, func(i, j int) bool { return statuses[i].SortOrder < statuses[j].SortOrder })
	s.cache.Set(statusesCacheKey, statuses, cache.DefaultExpiration)
	return statuses, nil
}

// ListTransitions returns transitions, optionally for one topic.
func (s *DictionaryService) ListTransitions(ctx context.Context, topic string) ([]domain.TopicStatusTransition, error) {
	var all []domain.TopicStatusTransition
	if cached, ok := s.cache.Get(transitionsCacheKey); ok {
		all = cached.([]domain.TopicStatusTransition)
	} else {
		var err error
		all, err = s.store.Repos().Transitions.List(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(transitionsCacheKey, all, cache.DefaultExpiration)
	}
	if topic == "" {
		return all, nil
	}
	out := make([]domain.TopicStatusTransition, 0, len(all))
	for _, t := range all {
		if t.TopicCode == topic {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpsertStatuses writes status definitions atomically.
func (s *DictionaryService) UpsertStatuses(ctx context.Context, actor domain.Actor, inputs []StatusInput) ([]domain.Status, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only administrators can edit the dictionary")
	}
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError("at least one status is required", nil)
	}
	now := s.clock.Now()
	statuses := make([]domain.Status, 0, len(inputs))
	for _, in := range inputs {
		st, err := buildStatus(in, now)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}

	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		for i := range statuses {
			if err := repos.Statuses.Upsert(ctx, &statuses[i]); err != nil {
				return fmt.Errorf("upsert status %s: %w", statuses[i].Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Flush()
	return statuses, nil
}

// UpsertTransitions writes transition edges atomically. Both endpoints must
// exist in the status dictionary.
func (s *DictionaryService) UpsertTransitions(ctx context.Context, actor domain.Actor, inputs []TransitionInput) ([]domain.TopicStatusTransition, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only administrators can edit the dictionary")
	}
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError("at least one transition is required", nil)
	}
	now := s.clock.Now()
	transitions := make([]domain.TopicStatusTransition, 0, len(inputs))
	for _, in := range inputs {
		t, err := buildTransition(in, now)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}

	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		for i := range transitions {
			t := &transitions[i]
			for _, code := range []string{t.FromStatus, t.ToStatus} {
				if _, err := repos.Statuses.Get(ctx, code); err != nil {
					if apperrors.IsNotFound(err) {
						return apperrors.NewValidationError("unknown status", map[string]any{"status": code})
					}
					return err
				}
			}
			if err := repos.Transitions.Upsert(ctx, t); err != nil {
				return fmt.Errorf("upsert transition %s: %w", transitionLabel(t), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Flush()
	return transitions, nil
}

// SeedDefaults installs the default statuses into an empty dictionary.
func (s *DictionaryService) SeedDefaults(ctx context.Context) (int, error) {
	seeded := 0
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Statuses.List(ctx)
		if err != nil || len(existing) > 0 {
			return err
		}
		now := s.clock.Now()
		for _, st := range domain.DefaultStatuses() {
			st.UpdatedAt = now
			if err := repos.Statuses.Upsert(ctx, &st); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if seeded > 0 {
		s.cache.Flush()
		s.logger.Info("status dictionary seeded", zap.Int("statuses", seeded))
	}
	return seeded, nil
}

func buildStatus(in StatusInput, now time.Time) (domain.Status, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if !codePattern.MatchString(code) {
		return domain.Status{}, apperrors.NewValidationError("invalid status code", map[string]any{"code": in.Code})
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Status{}, apperrors.NewValidationError("status name is required", map[string]any{"code": code})
	}
	kind := in.Kind
	if kind == "" {
		kind = domain.StatusKindDefault
	}
	if !kind.Valid() {
		return domain.Status{}, apperrors.NewValidationError("invalid status kind", map[string]any{"kind": in.Kind})
	}
	var tpl *string
	if in.InvoiceTemplate != nil && strings.TrimSpace(*in.InvoiceTemplate) != "" {
		tpl = strPtr(strings.TrimSpace(*in.InvoiceTemplate))
	}
	return domain.Status{
		Code:            code,
		Name:            name,
		Kind:            kind,
		InvoiceTemplate: tpl,
		IsTerminal:      in.IsTerminal,
		SortOrder:       in.SortOrder,
		UpdatedAt:       now,
	}, nil
}

func buildTransition(in TransitionInput, now time.Time) (domain.TopicStatusTransition, error) {
	t := domain.TopicStatusTransition{
		TopicCode:  strings.TrimSpace(in.TopicCode),
		FromStatus: strings.ToUpper(strings.TrimSpace(in.FromStatus)),
		ToStatus:   strings.ToUpper(strings.TrimSpace(in.ToStatus)),
		Enabled:    in.Enabled,
		SLAHours:   in.SLAHours,
		UpdatedAt:  now,
	}
	if t.TopicCode == "" || t.FromStatus == "" || t.ToStatus == "" {
		return t, apperrors.NewValidationError("topic_code, from_status and to_status are required", nil)
	}
	if t.FromStatus == t.ToStatus {
		return t, apperrors.NewValidationError("transition must change the status", map[string]any{"status": t.FromStatus})
	}
	if t.SLAHours != nil && *t.SLAHours <= 0 {
		return t, apperrors.NewValidationError("sla_hours must be positive", map[string]any{"transition": transitionLabel(&t)})
	}
	t.RequiredDataKeys = cleanList(in.RequiredDataKeys, false)
	t.RequiredMimeTypes = cleanList(in.RequiredMimeTypes, true)
	return t, nil
}

func cleanList(values []string, lower bool) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func transitionLabel(t *domain.TopicStatusTransition) string {
	return fmt.Sprintf("%s: %s -> %s", t.TopicCode, t.FromStatus, t.ToStatus)
}
