package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"codex-keepalive/models"
)

// CleanupOldVerdicts は保持期間を過ぎた監査レコードを削除する関数
func CleanupOldVerdicts(db *gorm.DB, retention time.Duration) {
	cutoff := time.Now().Add(-retention)

	result := db.Unscoped().Where("created_at < ?", cutoff).Delete(&models.VerdictRecord{})
	if result.Error != nil {
		log.Printf("old verdict delete error: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("old verdict deleted: %d", result.RowsAffected)
	}
}

// StartVerdictCleanup は定期的に古い監査レコードを掃除するループを起動する関数
func StartVerdictCleanup(db *gorm.DB, interval, retention time.Duration) chan struct{} {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				CleanupOldVerdicts(db, retention)
			case <-stop:
				return
			}
		}
	}()

	return stop
}
