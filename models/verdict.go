package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ActionExecute = "execute"
	ActionSkip    = "skip"
)

const (
	ReasonIneligible            = "ineligible"
	ReasonNoLockHeldInstruction = "no-lock-held-instruction"
	ReasonNewInstruction        = "new-instruction"
	ReasonStateUnreadable       = "state-unreadable"
	ReasonHeadUnchanged         = "no-new-instruction-and-head-unchanged"
	ReasonHeadChanged           = "head-changed"
	ReasonStaleInstruction      = "stale-instruction"
)

// ゲートの判定結果
// InstructionID / Trace は指示コメントが選ばれなかった場合は空
type Verdict struct {
	Action        string
	Reason        string
	InstructionID string
	Trace         string
}

// Executeかどうかを返す
func (v Verdict) ShouldExecute() bool {
	return v.Action == ActionExecute
}

// 判定結果の監査レコード
type VerdictRecord struct {
	ID            string `gorm:"primaryKey"`
	Repo          string
	PRNumber      int
	Action        string
	Reason        string
	InstructionID string
	Trace         string
	HeadSHA       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}
