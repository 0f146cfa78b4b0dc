package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateDraft(id, campaignID string, variant int) *models.Draft {
	return &models.Draft{
		ID:           id,
		CampaignID:   campaignID,
		VariantIndex: variant,
		Text:         "variant " + id,
		CharCount:    42,
		HashtagsUsed: []string{"#go"},
		Status:       models.DraftStatusPending,
	}
}

func TestMaterializeReturnsExistingDraft(t *testing.T) {
	slot := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sched := &models.Schedule{ID: "s1", CampaignID: "c1", SelectedVariantIndex: 0}

	existing := &models.Draft{ID: "d1", CampaignID: "c1", ScheduleID: &sched.ID, ScheduledFor: &slot, Status: models.DraftStatusPosted}
	dr := &fakeDraftRepo{drafts: []*models.Draft{existing}}
	m := NewMaterializer(dr, &fakeDraftMediaRepo{})

	got, err := m.Materialize(context.Background(), nil, sched, slot)
	require.NoError(t, err)
	assert.Same(t, existing, got)
	assert.Len(t, dr.drafts, 1)
}

func TestMaterializePrefersSelectedVariant(t *testing.T) {
	slot := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sched := &models.Schedule{ID: "s1", CampaignID: "c1", SelectedVariantIndex: 2}

	dr := &fakeDraftRepo{drafts: []*models.Draft{
		templateDraft("t0", "c1", 0),
		templateDraft("t2", "c1", 2),
	}}
	m := NewMaterializer(dr, &fakeDraftMediaRepo{})

	got, err := m.Materialize(context.Background(), nil, sched, slot)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "variant t2", got.Text)
	assert.Equal(t, 2, got.VariantIndex)
	assert.Equal(t, models.DraftStatusPending, got.Status)
	require.NotNil(t, got.ScheduleID)
	assert.Equal(t, "s1", *got.ScheduleID)
	require.NotNil(t, got.ScheduledFor)
	assert.True(t, got.ScheduledFor.Equal(slot))
	assert.NotEmpty(t, got.ID)
	assert.NotEqual(t, "t2", got.ID)
}

func TestMaterializeFallsBackToAnyDraft(t *testing.T) {
	slot := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sched := &models.Schedule{ID: "s1", CampaignID: "c1", SelectedVariantIndex: 7}

	dr := &fakeDraftRepo{drafts: []*models.Draft{templateDraft("t0", "c1", 0)}}
	m := NewMaterializer(dr, &fakeDraftMediaRepo{})

	got, err := m.Materialize(context.Background(), nil, sched, slot)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "variant t0", got.Text)
}

func TestMaterializeEmptyCampaignSkips(t *testing.T) {
	sched := &models.Schedule{ID: "s1", CampaignID: "empty", SelectedVariantIndex: 0}
	m := NewMaterializer(&fakeDraftRepo{}, &fakeDraftMediaRepo{})

	got, err := m.Materialize(context.Background(), nil, sched, time.Now())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMaterializeCopiesMediaPlan(t *testing.T) {
	slot := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sched := &models.Schedule{ID: "s1", CampaignID: "c1", SelectedVariantIndex: 0}

	dr := &fakeDraftRepo{drafts: []*models.Draft{templateDraft("t0", "c1", 0)}}
	dm := &fakeDraftMediaRepo{assocs: []*models.DraftMediaAsset{
		{ID: "a1", DraftID: "t0", MediaAssetID: "m1", OrderIndex: 0},
		{ID: "a2", DraftID: "t0", MediaAssetID: "m2", OrderIndex: 1},
	}}
	m := NewMaterializer(dr, dm)

	got, err := m.Materialize(context.Background(), nil, sched, slot)
	require.NoError(t, err)
	require.NotNil(t, got)

	copied, err := dm.ListByDraftID(context.Background(), got.ID)
	require.NoError(t, err)
	require.Len(t, copied, 2)
	assert.Equal(t, "m1", copied[0].MediaAssetID)
	assert.Equal(t, 0, copied[0].OrderIndex)
	assert.Equal(t, "m2", copied[1].MediaAssetID)
	assert.Equal(t, 1, copied[1].OrderIndex)
	assert.NotEqual(t, "a1", copied[0].ID)
}
