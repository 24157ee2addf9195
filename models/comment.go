package models

import "time"

// コメント分類の種別
type CommentKind string

const (
	CommentKindInstruction  CommentKind = "instruction"
	CommentKindState        CommentKind = "state"
	CommentKindUnrecognized CommentKind = "unrecognized"
)

// PRのコメントスレッドから取得した生のコメント
// Reactionsはマーカー付きコメントに対してのみ遅延取得される
type Comment struct {
	ID        int64
	CreatedAt time.Time
	Author    string
	Body      string
	Reactions []string
}

// 人間が書いた指示コメント（マーカー + round + trace が揃っているもの）
type Instruction struct {
	CommentID int64
	CreatedAt time.Time
	Author    string
	Round     int
	Trace     string
	Reactions []string
}

// stateコメントのペイロード（keepalive-state:v1 マーカー内のJSON）
type StatePayload struct {
	LastInstruction StateLastInstruction `json:"last_instruction"`
}

type StateLastInstruction struct {
	CommentID string `json:"comment_id"`
	HeadSHA   string `json:"head_sha"`
}

// 自動化アカウントが書いたstateコメント
// Payloadがnilの場合はJSONが壊れているか必須フィールドが欠けている
type StateComment struct {
	CommentID  int64
	CreatedAt  time.Time
	RawPayload string
	Payload    *StatePayload
}

// コメントを一度だけパースした結果（以降のロジックは生テキストを再パースしない）
type ParsedComment struct {
	Kind        CommentKind
	Instruction *Instruction
	State       *StateComment
}
