package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"codex-keepalive/models"
)

// 判定結果を監査レコードとして保存する関数
func RecordVerdict(db *gorm.DB, ref PullRequestRef, headSHA string, verdict models.Verdict) (*models.VerdictRecord, error) {
	record := models.VerdictRecord{
		ID:            uuid.NewString(),
		Repo:          fmt.Sprintf("%s/%s", ref.Owner, ref.Repo),
		PRNumber:      ref.Number,
		Action:        verdict.Action,
		Reason:        verdict.Reason,
		InstructionID: verdict.InstructionID,
		Trace:         verdict.Trace,
		HeadSHA:       headSHA,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to save verdict record: %w", err)
	}

	log.Printf("verdict recorded: id=%s repo=%s pr=%d action=%s reason=%s",
		record.ID, record.Repo, record.PRNumber, record.Action, record.Reason)
	return &record, nil
}

// PRの監査レコードを新しい順に取得する関数
func ListRecentVerdicts(db *gorm.DB, repo string, prNumber int, limit int) ([]models.VerdictRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []models.VerdictRecord
	err := db.Where("repo = ? AND pr_number = ?", repo, prNumber).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list verdict records: %w", err)
	}

	return records, nil
}
