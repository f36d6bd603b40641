package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

// Threshold policies for statuses with several outgoing SLA-bound transitions.
const (
	SLAPolicyStrictest = "strictest"
	SLAPolicyLoosest   = "loosest"
)

// SLAConfig holds the threshold fallbacks used when no transition carries
// an SLA.
type SLAConfig struct {
	DefaultHours     int            `yaml:"default_hours"`
	Policy           string         `yaml:"policy"`
	StatusDefaults   map[string]int `yaml:"status_defaults"`
	TerminalFallback []string       `yaml:"terminal_fallback"`
}

// DefaultSLAConfig returns the built-in thresholds.
func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		DefaultHours: 72,
		Policy:       SLAPolicyStrictest,
		StatusDefaults: map[string]int{
			"NEW":             24,
			"IN_PROGRESS":     72,
			"WAITING_CLIENT":  120,
			"BILLING":         48,
			"WAITING_PAYMENT": 72,
			"PAID":            24,
		},
		TerminalFallback: []string{"CLOSED", "RESOLVED", "REJECTED", "ARCHIVED"},
	}
}

// LoadSLARules overlays the YAML file at path onto base. Keys missing from
// the file keep their base values; status defaults are merged per code.
func LoadSLARules(path string, base SLAConfig) (SLAConfig, error) {
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read sla rules: %w", err)
	}
	var file SLAConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return base, fmt.Errorf("parse sla rules: %w", err)
	}

	out := base
	out.StatusDefaults = make(map[string]int, len(base.StatusDefaults)+len(file.StatusDefaults))
	for code, hours := range base.StatusDefaults {
		out.StatusDefaults[code] = hours
	}
	for code, hours := range file.StatusDefaults {
		if hours <= 0 {
			return base, fmt.Errorf("sla rules: status %s must have positive hours", code)
		}
		out.StatusDefaults[code] = hours
	}
	if file.DefaultHours > 0 {
		out.DefaultHours = file.DefaultHours
	}
	if file.Policy != "" {
		out.Policy = file.Policy
	}
	if len(file.TerminalFallback) > 0 {
		out.TerminalFallback = file.TerminalFallback
	}
	if out.Policy != SLAPolicyStrictest && out.Policy != SLAPolicyLoosest {
		return base, fmt.Errorf("sla rules: unknown policy %q", out.Policy)
	}
	return out, nil
}

// SLASnapshot is a point-in-time SLA report over active requests.
type SLASnapshot struct {
	Checked                 int                `json:"checked"`
	Overdue                 int                `json:"overdue"`
	OverdueByStatus         map[string]int     `json:"overdue_by_status"`
	OverdueByTransition     map[string]int     `json:"overdue_by_transition"`
	AvgFirstResponseMinutes *float64           `json:"avg_first_response_minutes"`
	AvgTimeInStatusHours    map[string]float64 `json:"avg_time_in_status_hours"`
	OverdueRequests         []OverdueRequest   `json:"overdue_requests,omitempty"`
	GeneratedAt             time.Time          `json:"generated_at"`
}

// OverdueRequest summarizes one request past its threshold.
type OverdueRequest struct {
	RequestID        string    `json:"request_id"`
	TrackNumber      string    `json:"track_number"`
	TopicCode        string    `json:"topic_code"`
	StatusCode       string    `json:"status_code"`
	AssignedLawyerID *string   `json:"assigned_lawyer_id"`
	HoursInStatus    float64   `json:"hours_in_status"`
	ThresholdHours   int       `json:"threshold_hours"`
	StatusStartedAt  time.Time `json:"status_started_at"`
}

// SLARunResult is the outcome of one scheduled check.
type SLARunResult struct {
	Snapshot             SLASnapshot
	NotificationsCreated int
	Failed               int
}

// SLAService computes SLA snapshots and raises overdue notifications.
type SLAService struct {
	store    repository.Store
	notifier *NotificationService
	clock    clock.Clock
	cfg      SLAConfig
	logger   *zap.Logger
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	Store    repository.Store
	Notifier *NotificationService
	Clock    clock.Clock
	Config   SLAConfig
	Logger   *zap.Logger
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	cfg := deps.Config
	defaults := DefaultSLAConfig()
	if cfg.DefaultHours <= 0 {
		cfg.DefaultHours = defaults.DefaultHours
	}
	if cfg.Policy == "" {
		cfg.Policy = defaults.Policy
	}
	if cfg.StatusDefaults == nil {
		cfg.StatusDefaults = defaults.StatusDefaults
	}
	if len(cfg.TerminalFallback) == 0 {
		cfg.TerminalFallback = defaults.TerminalFallback
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		store:    deps.Store,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Snapshot computes the report at the current clock time.
func (s *SLAService) Snapshot(ctx context.Context, includeOverdue bool) (SLASnapshot, error) {
	return s.ComputeSnapshot(ctx, s.clock.Now(), includeOverdue)
}

// ComputeSnapshot aggregates SLA figures as of now. It only reads.
func (s *SLAService) ComputeSnapshot(ctx context.Context, now time.Time, includeOverdue bool) (SLASnapshot, error) {
	repos := s.store.Repos()
	snap := SLASnapshot{
		OverdueByStatus:      map[string]int{},
		OverdueByTransition:  map[string]int{},
		AvgTimeInStatusHours: map[string]float64{},
		GeneratedAt:          now,
	}

	terminal, err := s.terminalStatuses(ctx, repos)
	if err != nil {
		return snap, err
	}
	active, err := repos.Requests.ListActive(ctx, terminal)
	if err != nil {
		return snap, fmt.Errorf("list active requests: %w", err)
	}
	snap.Checked = len(active)
	if len(active) == 0 {
		return snap, nil
	}

	thresholds, err := s.transitionThresholds(ctx, repos)
	if err != nil {
		return snap, err
	}
	ids := make([]string, len(active))
	for i := range active {
		ids[i] = active[i].ID
	}
	histories, err := repos.History.ListByRequests(ctx, ids)
	if err != nil {
		return snap, fmt.Errorf("load status history: %w", err)
	}
	firstLawyer, err := repos.Messages.FirstByRole(ctx, ids, domain.RoleLawyer)
	if err != nil {
		return snap, fmt.Errorf("load first responses: %w", err)
	}

	var (
		frtSum   float64
		frtCount int
		inStatus = map[string]time.Duration{}
		counts   = map[string]int{}
	)
	for i := range active {
		req := &active[i]
		history := histories[req.ID]
		domain.SortHistory(history)

		started := statusStart(req, history)
		threshold := s.threshold(req, thresholds)
		elapsed := now.Sub(started)
		if elapsed > time.Duration(threshold)*time.Hour {
			snap.Overdue++
			snap.OverdueByStatus[req.StatusCode]++
			snap.OverdueByTransition[fmt.Sprintf("%s:%s->*", req.TopicCode, req.StatusCode)]++
			if includeOverdue {
				snap.OverdueRequests = append(snap.OverdueRequests, OverdueRequest{
					RequestID:        req.ID,
					TrackNumber:      req.TrackNumber,
					TopicCode:        req.TopicCode,
					StatusCode:       req.StatusCode,
					AssignedLawyerID: req.AssignedLawyerID,
					HoursInStatus:    roundTo(elapsed.Hours(), 2),
					ThresholdHours:   threshold,
					StatusStartedAt:  started,
				})
			}
		}

		if at, ok := firstLawyer[req.ID]; ok {
			if delta := at.Sub(req.CreatedAt); delta >= 0 {
				frtSum += delta.Minutes()
				frtCount++
			}
		}
		accumulateTimeInStatus(req, history, now, inStatus, counts)
	}

	if frtCount > 0 {
		avg := roundTo(frtSum/float64(frtCount), 2)
		snap.AvgFirstResponseMinutes = &avg
	}
	for code, total := range inStatus {
		snap.AvgTimeInStatusHours[code] = roundTo(total.Hours()/float64(counts[code]), 2)
	}
	sort.SliceStable(snap.OverdueRequests, func(i, j int) bool {
		return snap.OverdueRequests[i].HoursInStatus > snap.OverdueRequests[j].HoursInStatus
	})
	return snap, nil
}

// RunCheck computes a snapshot and raises SLA_OVERDUE notifications for every
// overdue request. Dedupe keys carry the status start, so reruns within the
// same status stay silent.
func (s *SLAService) RunCheck(ctx context.Context) (SLARunResult, error) {
	snap, err := s.ComputeSnapshot(ctx, s.clock.Now(), true)
	if err != nil {
		return SLARunResult{}, err
	}
	result := SLARunResult{Snapshot: snap}
	for _, item := range snap.OverdueRequests {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := s.notifyOverdue(ctx, item)
		if err != nil {
			s.logger.Warn("sla notification failed",
				zap.String("request_id", item.RequestID),
				zap.String("track_number", item.TrackNumber),
				zap.Error(err),
			)
			result.Failed++
			continue
		}
		result.NotificationsCreated += created
	}
	return result, nil
}

func (s *SLAService) notifyOverdue(ctx context.Context, item OverdueRequest) (int, error) {
	outbox := s.notifier.NewOutbox()
	created := 0
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, item.RequestID)
		if err != nil {
			return err
		}
		// Moved on since the snapshot was taken.
		if req.StatusCode != item.StatusCode {
			return nil
		}
		recipients, err := s.overdueRecipients(ctx, repos, req)
		if err != nil || len(recipients) == 0 {
			return err
		}
		res, err := s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
			Type:  domain.EventSLAOverdue,
			Actor: domain.SystemActor(),
			Title: fmt.Sprintf("Просрочен SLA по заявке %s", req.TrackNumber),
			Body: fmt.Sprintf("Статус %s: %.1f ч при норме %d ч",
				item.StatusCode, item.HoursInStatus, item.ThresholdHours),
			DedupePrefix: fmt.Sprintf("sla:%s:%s:%d", req.ID, item.StatusCode, item.StatusStartedAt.Unix()),
			Recipients:   recipients,
		})
		created = res.InternalCreated
		return err
	})
	if err != nil {
		return 0, err
	}
	outbox.Flush(ctx)
	return created, nil
}

func (s *SLAService) overdueRecipients(ctx context.Context, repos repository.Repositories, req *domain.Request) ([]Recipient, error) {
	if req.AssignedLawyerID != nil && *req.AssignedLawyerID != "" {
		return []Recipient{{AdminUserID: *req.AssignedLawyerID}}, nil
	}
	admins, err := repos.AdminUsers.ListActiveByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	out := make([]Recipient, 0, len(admins))
	for _, a := range admins {
		out = append(out, Recipient{AdminUserID: a.ID})
	}
	return out, nil
}

func (s *SLAService) terminalStatuses(ctx context.Context, repos repository.Repositories) ([]string, error) {
	statuses, err := repos.Statuses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	var terminal []string
	for _, st := range statuses {
		if st.IsTerminal {
			terminal = append(terminal, st.Code)
		}
	}
	if len(terminal) == 0 {
		terminal = append(terminal, s.cfg.TerminalFallback...)
	}
	return terminal, nil
}

// transitionThresholds resolves one SLA per (topic, from status) from the
// enabled transitions according to the configured policy.
func (s *SLAService) transitionThresholds(ctx context.Context, repos repository.Repositories) (map[string]int, error) {
	transitions, err := repos.Transitions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	out := map[string]int{}
	for _, t := range transitions {
		if !t.Enabled || t.SLAHours == nil || *t.SLAHours <= 0 {
			continue
		}
		key := thresholdKey(t.TopicCode, t.FromStatus)
		current, seen := out[key]
		hours := *t.SLAHours
		switch {
		case !seen:
			out[key] = hours
		case s.cfg.Policy == SLAPolicyLoosest && hours > current:
			out[key] = hours
		case s.cfg.Policy != SLAPolicyLoosest && hours < current:
			out[key] = hours
		}
	}
	return out, nil
}

func (s *SLAService) threshold(req *domain.Request, transitions map[string]int) int {
	if hours, ok := transitions[thresholdKey(req.TopicCode, req.StatusCode)]; ok {
		return hours
	}
	if hours, ok := s.cfg.StatusDefaults[req.StatusCode]; ok && hours > 0 {
		return hours
	}
	return s.cfg.DefaultHours
}

func thresholdKey(topic, status string) string {
	return topic + "\x00" + status
}

// statusStart is when req entered its current status. history must be
// sorted.
func statusStart(req *domain.Request, history []domain.StatusHistory) time.Time {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ToStatus == req.StatusCode {
			return history[i].CreatedAt
		}
	}
	if !req.UpdatedAt.IsZero() {
		return req.UpdatedAt
	}
	return req.CreatedAt
}

func accumulateTimeInStatus(req *domain.Request, history []domain.StatusHistory, now time.Time, totals map[string]time.Duration, counts map[string]int) {
	add := func(code string, from, to time.Time) {
		d := to.Sub(from)
		if d < 0 {
			d = 0
		}
		totals[code] += d
		counts[code]++
	}
	if len(history) == 0 {
		add(req.StatusCode, req.CreatedAt, now)
		return
	}
	for i, row := range history {
		end := now
		if i+1 < len(history) {
			end = history[i+1].CreatedAt
		}
		add(row.ToStatus, row.CreatedAt, end)
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
