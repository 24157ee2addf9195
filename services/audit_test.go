package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"codex-keepalive/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("fail to open test db: %v", err)
	}

	if err := db.AutoMigrate(&models.VerdictRecord{}); err != nil {
		t.Fatalf("fail to migrate test db: %v", err)
	}

	return db
}

func TestRecordVerdict(t *testing.T) {
	db := setupTestDB(t)

	verdict := models.Verdict{
		Action:        models.ActionExecute,
		Reason:        models.ReasonNewInstruction,
		InstructionID: "200",
		Trace:         "trace-200",
	}

	record, err := RecordVerdict(db, testRef(), "abc123", verdict)

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "testorg/testrepo", record.Repo)
	assert.Equal(t, 5, record.PRNumber)
	assert.Equal(t, models.ActionExecute, record.Action)
	assert.Equal(t, models.ReasonNewInstruction, record.Reason)
	assert.Equal(t, "200", record.InstructionID)
	assert.Equal(t, "trace-200", record.Trace)
	assert.Equal(t, "abc123", record.HeadSHA)

	var saved models.VerdictRecord
	require.NoError(t, db.First(&saved, "id = ?", record.ID).Error)
	assert.Equal(t, record.Reason, saved.Reason)
}

func TestListRecentVerdicts(t *testing.T) {
	db := setupTestDB(t)

	// 古い順に3件保存
	for i, reason := range []string{models.ReasonNewInstruction, models.ReasonHeadChanged, models.ReasonHeadUnchanged} {
		record := models.VerdictRecord{
			ID:        uuid.NewString(),
			Repo:      "testorg/testrepo",
			PRNumber:  5,
			Action:    models.ActionExecute,
			Reason:    reason,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&record).Error)
	}

	// 他のPRのレコードは混ざらない
	other := models.VerdictRecord{
		ID:       uuid.NewString(),
		Repo:     "testorg/testrepo",
		PRNumber: 99,
		Action:   models.ActionSkip,
		Reason:   models.ReasonIneligible,
	}
	require.NoError(t, db.Create(&other).Error)

	records, err := ListRecentVerdicts(db, "testorg/testrepo", 5, 10)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.ReasonHeadUnchanged, records[0].Reason)
	assert.Equal(t, models.ReasonNewInstruction, records[2].Reason)
}

func TestListRecentVerdictsLimit(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 5; i++ {
		record := models.VerdictRecord{
			ID:        uuid.NewString(),
			Repo:      "testorg/testrepo",
			PRNumber:  5,
			Action:    models.ActionSkip,
			Reason:    models.ReasonHeadUnchanged,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&record).Error)
	}

	records, err := ListRecentVerdicts(db, "testorg/testrepo", 5, 2)

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCleanupOldVerdicts(t *testing.T) {
	db := setupTestDB(t)

	old := models.VerdictRecord{
		ID:        uuid.NewString(),
		Repo:      "testorg/testrepo",
		PRNumber:  5,
		Action:    models.ActionSkip,
		Reason:    models.ReasonHeadUnchanged,
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	}
	recent := models.VerdictRecord{
		ID:        uuid.NewString(),
		Repo:      "testorg/testrepo",
		PRNumber:  5,
		Action:    models.ActionExecute,
		Reason:    models.ReasonNewInstruction,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	CleanupOldVerdicts(db, 30*24*time.Hour)

	var remaining []models.VerdictRecord
	require.NoError(t, db.Unscoped().Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, recent.ID, remaining[0].ID)
}
