package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/models"
)

func newTestDecisionService(t *testing.T) *DecisionService {
	t.Helper()
	db := newTestDB(t, &models.AgentDecision{}, &models.DecisionBackup{})
	return NewDecisionService(db, zap.NewNop())
}

func TestInsertFillsDefaults(t *testing.T) {
	svc := newTestDecisionService(t)

	decision := models.AgentDecision{
		TenantID: "acme",
		Action:   models.ActionReply,
		TargetID: "p1",
		Reason:   "question",
	}
	require.NoError(t, svc.Insert(context.Background(), &decision))

	assert.NotEmpty(t, decision.ID)
	assert.Equal(t, models.StatusPending, decision.Status)

	rows, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, decision.ID, rows[0].ID)
}

func TestRecentOrderingAndLimit(t *testing.T) {
	svc := newTestDecisionService(t)
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"d1", "d2", "d3"} {
		decision := models.AgentDecision{
			ID:        id,
			TenantID:  "acme",
			Action:    models.ActionCampaign,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, svc.Insert(context.Background(), &decision))
	}

	rows, err := svc.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "d3", rows[0].ID)
	assert.Equal(t, "d2", rows[1].ID)
}

func TestPruneBoundary(t *testing.T) {
	svc := newTestDecisionService(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)

	for id, createdAt := range map[string]time.Time{
		"too-old":        cutoff.Add(-time.Second),
		"exactly-cutoff": cutoff,
		"fresh":          cutoff.Add(time.Second),
	} {
		decision := models.AgentDecision{
			ID:        id,
			TenantID:  "acme",
			Action:    models.ActionReply,
			CreatedAt: createdAt,
		}
		require.NoError(t, svc.Insert(context.Background(), &decision))
	}

	pruned, err := svc.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	rows, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)

	var ids []string
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	// Rows at exactly the cutoff survive; only strictly older rows go.
	assert.ElementsMatch(t, []string{"exactly-cutoff", "fresh"}, ids)
}

func TestBackupOverwritesSingleRow(t *testing.T) {
	svc := newTestDecisionService(t)
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"d1", "d2", "d3"} {
		decision := models.AgentDecision{
			ID:        id,
			TenantID:  "acme",
			Action:    models.ActionReply,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, svc.Insert(context.Background(), &decision))
	}

	require.NoError(t, svc.Backup(context.Background(), 2))
	require.NoError(t, svc.Backup(context.Background(), 3))

	var backups []models.DecisionBackup
	require.NoError(t, svc.db.Find(&backups).Error)
	require.Len(t, backups, 1)
	assert.Equal(t, "latest", backups[0].Key)
	assert.Equal(t, 3, backups[0].Count)

	var snapshot []models.AgentDecision
	require.NoError(t, json.Unmarshal(backups[0].Data, &snapshot))
	assert.Len(t, snapshot, 3)
}
