package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

func hours(h int) *int { return &h }

func TestSLAThresholdPrecedence(t *testing.T) {
	t.Run("transition sla wins over status default", func(t *testing.T) {
		f := newFixture(t)
		f.addTransition("NEW", "IN_PROGRESS", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(1) })
		f.newRequest("TRK-SLA-1", nil)
		f.clock.Advance(2 * time.Hour)

		snap, err := f.sla.Snapshot(f.ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Checked)
		assert.GreaterOrEqual(t, snap.OverdueByStatus["NEW"], 1)
		assert.Equal(t, 1, snap.OverdueByTransition["civil:NEW->*"])
		require.Len(t, snap.OverdueRequests, 1)
		assert.Equal(t, 1, snap.OverdueRequests[0].ThresholdHours)
		assert.Equal(t, 2.0, snap.OverdueRequests[0].HoursInStatus)
		assert.Equal(t, "TRK-SLA-1", snap.OverdueRequests[0].TrackNumber)
	})

	t.Run("status default applies without transition sla", func(t *testing.T) {
		f := newFixture(t)
		f.newRequest("TRK-SLA-2", nil)
		f.clock.Advance(2 * time.Hour)

		snap, err := f.sla.Snapshot(f.ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Overdue)
		assert.Zero(t, snap.OverdueByStatus["NEW"])
		assert.Empty(t, snap.OverdueRequests)

		f.clock.Advance(23 * time.Hour)
		snap, err = f.sla.Snapshot(f.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.OverdueByStatus["NEW"])
		assert.Empty(t, snap.OverdueRequests, "overdue list only on request")
	})

	t.Run("global default for unknown status", func(t *testing.T) {
		f := newFixture(t)
		f.newRequest("TRK-SLA-3", func(r *domain.Request) { r.StatusCode = "ON_HOLD" })
		f.clock.Advance(72 * time.Hour)
		snap, err := f.sla.Snapshot(f.ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Overdue)

		f.clock.Advance(time.Minute)
		snap, err = f.sla.Snapshot(f.ctx, true)
		require.NoError(t, err)
		require.Len(t, snap.OverdueRequests, 1)
		assert.Equal(t, 72, snap.OverdueRequests[0].ThresholdHours)
	})

	t.Run("disabled transitions are ignored", func(t *testing.T) {
		f := newFixture(t)
		f.addTransition("NEW", "IN_PROGRESS", func(tr *domain.TopicStatusTransition) {
			tr.SLAHours = hours(1)
			tr.Enabled = false
		})
		f.newRequest("TRK-SLA-4", nil)
		f.clock.Advance(2 * time.Hour)
		snap, err := f.sla.Snapshot(f.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Overdue)
	})
}

func TestSLAPolicyAcrossOutgoingTransitions(t *testing.T) {
	f := newFixture(t)
	f.addTransition("NEW", "IN_PROGRESS", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(1) })
	f.addTransition("NEW", "REJECTED", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(5) })
	f.newRequest("TRK-POLICY", nil)
	f.clock.Advance(2 * time.Hour)

	snap, err := f.sla.Snapshot(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, snap.OverdueRequests, 1)
	assert.Equal(t, 1, snap.OverdueRequests[0].ThresholdHours)

	cfg := DefaultSLAConfig()
	cfg.Policy = SLAPolicyLoosest
	loose := NewSLAService(SLADependencies{Store: f.store, Notifier: f.notifier, Clock: f.clock, Config: cfg})
	snap, err = loose.Snapshot(f.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Overdue)
}

func TestSLAExcludesTerminalRequests(t *testing.T) {
	f := newFixture(t)
	f.newRequest("TRK-DONE", func(r *domain.Request) { r.StatusCode = "RESOLVED" })
	f.newRequest("TRK-OPEN", nil)
	f.clock.Advance(1000 * time.Hour)

	snap, err := f.sla.Snapshot(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Checked)
	assert.Zero(t, snap.OverdueByStatus["RESOLVED"])
}

func TestSLAFirstResponseTime(t *testing.T) {
	f := newFixture(t)
	repos := f.store.Repos()
	first := f.newRequest("TRK-FRT-1", nil)
	second := f.newRequest("TRK-FRT-2", nil)
	f.newRequest("TRK-FRT-3", nil)

	for _, m := range []domain.RequestMessage{
		{RequestID: first.ID, AuthorRole: domain.RoleClient, Body: "q", CreatedAt: testEpoch.Add(10 * time.Minute)},
		{RequestID: first.ID, AuthorRole: domain.RoleLawyer, Body: "a", CreatedAt: testEpoch.Add(60 * time.Minute)},
		{RequestID: first.ID, AuthorRole: domain.RoleLawyer, Body: "a", CreatedAt: testEpoch.Add(30 * time.Minute)},
		{RequestID: second.ID, AuthorRole: domain.RoleLawyer, Body: "a", CreatedAt: testEpoch.Add(90 * time.Minute)},
	} {
		m := m
		require.NoError(t, repos.Messages.Create(f.ctx, &m))
	}
	f.clock.Advance(3 * time.Hour)

	snap, err := f.sla.Snapshot(f.ctx, false)
	require.NoError(t, err)
	require.NotNil(t, snap.AvgFirstResponseMinutes)
	assert.Equal(t, 60.0, *snap.AvgFirstResponseMinutes)
}

func TestSLAFirstResponseTimeNullWithoutData(t *testing.T) {
	f := newFixture(t)
	f.newRequest("TRK-FRT-NONE", nil)
	snap, err := f.sla.Snapshot(f.ctx, false)
	require.NoError(t, err)
	assert.Nil(t, snap.AvgFirstResponseMinutes)
}

func TestSLAAverageTimeInStatusBreaksTiesBySequence(t *testing.T) {
	f := newFixture(t)
	repos := f.store.Repos()
	req := f.newRequest("TRK-TIES", nil)
	oneHour := testEpoch.Add(time.Hour)
	for _, row := range []domain.StatusHistory{
		{RequestID: req.ID, FromStatus: strPtr("NEW"), ToStatus: "IN_PROGRESS", ChangedByRole: domain.RoleLawyer, CreatedAt: oneHour},
		{RequestID: req.ID, FromStatus: strPtr("IN_PROGRESS"), ToStatus: "WAITING_CLIENT", ChangedByRole: domain.RoleLawyer, CreatedAt: oneHour},
	} {
		row := row
		require.NoError(t, repos.History.Append(f.ctx, &row))
	}
	stored := f.reload(req)
	stored.StatusCode = "WAITING_CLIENT"
	stored.UpdatedAt = oneHour
	require.NoError(t, repos.Requests.Update(f.ctx, stored))

	// no history: [created_at, now) counts toward the current status
	bare := &domain.Request{
		TrackNumber: "TRK-BARE", ClientName: "c", TopicCode: testTopic, StatusCode: "NEW",
		CreatedAt: testEpoch, UpdatedAt: testEpoch,
	}
	require.NoError(t, repos.Requests.Create(f.ctx, bare))

	f.clock.Advance(3 * time.Hour)
	snap, err := f.sla.Snapshot(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Checked)
	assert.Equal(t, 2.0, snap.AvgTimeInStatusHours["NEW"], "(1h + 3h) / 2")
	assert.Equal(t, 0.0, snap.AvgTimeInStatusHours["IN_PROGRESS"])
	assert.Equal(t, 2.0, snap.AvgTimeInStatusHours["WAITING_CLIENT"])
}

func TestSLAStatusStartUsesLatestEntry(t *testing.T) {
	f := newFixture(t)
	f.addTransition("IN_PROGRESS", "BILLING", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(2) })
	req := f.newRequest("TRK-REENTER", nil)
	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	f.clock.Advance(3 * time.Hour)
	f.move(f.lawyerActor(), req, "WAITING_CLIENT")
	f.clock.Advance(time.Hour)
	f.move(f.lawyerActor(), req, "IN_PROGRESS")
	f.clock.Advance(time.Hour)

	snap, err := f.sla.Snapshot(f.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Overdue, "only the hour since re-entering counts")
}

func TestSLARunCheckIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addTransition("NEW", "IN_PROGRESS", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(1) })
	req := f.newRequest("TRK-SLA-RUN", nil)
	f.clock.Advance(2 * time.Hour)

	first, err := f.sla.RunCheck(f.ctx)
	require.NoError(t, err)
	second, err := f.sla.RunCheck(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.NotificationsCreated)
	assert.Equal(t, 0, second.NotificationsCreated)
	assert.Zero(t, second.Failed)
	assert.Equal(t, first.Snapshot.Overdue, second.Snapshot.Overdue)
	assert.Equal(t, first.Snapshot.OverdueByStatus, second.Snapshot.OverdueByStatus)

	inbox, err := f.notifier.List(f.ctx, f.lawyerActor(), false)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, domain.EventSLAOverdue, inbox[0].EventType)
	require.NotNil(t, inbox[0].DedupeKey)
	assert.True(t, f.reload(req).LawyerHasUnreadUpdates)
	assert.False(t, f.reload(req).ClientHasUnreadUpdates)
}

func TestSLAUnassignedOverdueGoesToAdmins(t *testing.T) {
	f := newFixture(t)
	f.addTransition("NEW", "IN_PROGRESS", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(1) })
	f.newRequest("TRK-SLA-ADM", func(r *domain.Request) { r.AssignedLawyerID = nil })
	f.clock.Advance(2 * time.Hour)

	res, err := f.sla.RunCheck(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotificationsCreated)

	inbox, err := f.notifier.List(f.ctx, f.adminActor(), true)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	lawyerInbox, err := f.notifier.List(f.ctx, f.lawyerActor(), true)
	require.NoError(t, err)
	assert.Empty(t, lawyerInbox)
}

func TestSLASnapshotDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	f.addTransition("NEW", "IN_PROGRESS", func(tr *domain.TopicStatusTransition) { tr.SLAHours = hours(1) })
	req := f.newRequest("TRK-READONLY", nil)
	before := f.reload(req)
	f.clock.Advance(5 * time.Hour)

	_, err := f.sla.Snapshot(f.ctx, true)
	require.NoError(t, err)
	assert.Empty(t, f.notificationsOf(req))
	assert.Equal(t, before, f.reload(req))
}

func TestLoadSLARules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_hours: 48
policy: loosest
status_defaults:
  NEW: 12
terminal_fallback: [CLOSED]
`), 0o600))

	cfg, err := LoadSLARules(path, DefaultSLAConfig())
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.DefaultHours)
	assert.Equal(t, SLAPolicyLoosest, cfg.Policy)
	assert.Equal(t, 12, cfg.StatusDefaults["NEW"])
	assert.Equal(t, 72, cfg.StatusDefaults["IN_PROGRESS"])
	assert.Equal(t, []string{"CLOSED"}, cfg.TerminalFallback)
	assert.Equal(t, 24, DefaultSLAConfig().StatusDefaults["NEW"])

	same, err := LoadSLARules("", DefaultSLAConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultSLAConfig(), same)

	for name, body := range map[string]string{
		"policy":    "policy: random\n",
		"hours":     "status_defaults:\n  NEW: 0\n",
		"malformed": "status_defaults: [",
	} {
		bad := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(bad, []byte(body), 0o600))
		_, err := LoadSLARules(bad, DefaultSLAConfig())
		assert.Error(t, err, name)
	}

	_, err = LoadSLARules(filepath.Join(dir, "missing.yaml"), DefaultSLAConfig())
	assert.Error(t, err)
}
