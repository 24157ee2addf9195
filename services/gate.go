package services

import (
	"context"
	"log"
	"strconv"

	"github.com/google/go-github/v68/github"

	"codex-keepalive/models"
)

// ゲートの評価オプション
// 環境変数はmainで一度だけ読み、ここには値として渡す
type Options struct {
	// keepalive全体の有効フラグ
	Enabled bool
	// forkからのPRを許可するか
	AllowForks bool
	// stateコメントを書く自動化アカウントのログイン名
	BotLogin string
}

// スナップショットに対する純粋な判定関数
// I/Oは行わないため、同じスナップショットに対しては常に同じ判定を返す
func Decide(snapshot *Snapshot, opts Options) models.Verdict {
	if !opts.Enabled {
		log.Println("keepalive is disabled: skip")
		return models.Verdict{Action: models.ActionSkip, Reason: models.ReasonIneligible}
	}

	if snapshot.IsFork && !opts.AllowForks {
		log.Println("fork pull request is not allowed: skip")
		return models.Verdict{Action: models.ActionSkip, Reason: models.ReasonIneligible}
	}

	var latestInstruction *models.Instruction
	var latestState *models.StateComment
	knownIDs := make(map[int64]bool)

	for _, c := range snapshot.Comments {
		knownIDs[c.ID] = true

		parsed := ParseComment(c, opts.BotLogin)
		switch parsed.Kind {
		case models.CommentKindInstruction:
			// ロック済み（必要なリアクションが両方付いている）指示のみ候補にする
			if !HasLockReactions(parsed.Instruction.Reactions) {
				continue
			}
			if latestInstruction == nil || newerInstruction(parsed.Instruction, latestInstruction) {
				latestInstruction = parsed.Instruction
			}
		case models.CommentKindState:
			if latestState == nil || parsed.State.CommentID > latestState.CommentID {
				latestState = parsed.State
			}
		}
	}

	if latestInstruction == nil {
		log.Println("no lock-held instruction found: skip")
		return models.Verdict{Action: models.ActionSkip, Reason: models.ReasonNoLockHeldInstruction}
	}

	verdict := models.Verdict{
		InstructionID: strconv.FormatInt(latestInstruction.CommentID, 10),
		Trace:         latestInstruction.Trace,
	}

	if latestState == nil {
		// 初回ラウンド
		verdict.Action = models.ActionExecute
		verdict.Reason = models.ReasonNewInstruction
		return verdict
	}

	if latestState.Payload == nil {
		// stateが読めない場合は止まり続けるよりも1ラウンド余分に動く方を選ぶ
		verdict.Action = models.ActionExecute
		verdict.Reason = models.ReasonStateUnreadable
		return verdict
	}

	stateInstructionID, err := strconv.ParseInt(latestState.Payload.LastInstruction.CommentID, 10, 64)
	if err != nil {
		log.Printf("state comment %d has non-numeric comment_id %q", latestState.CommentID, latestState.Payload.LastInstruction.CommentID)
		verdict.Action = models.ActionExecute
		verdict.Reason = models.ReasonStateUnreadable
		return verdict
	}

	// stateが存在しないコメントを指している場合は「state無し」と同等に扱う
	// 上流のバグの可能性があるので警告は残す
	if !knownIDs[stateInstructionID] {
		log.Printf("state comment %d references unknown instruction %d: treated as no prior state", latestState.CommentID, stateInstructionID)
		verdict.Action = models.ActionExecute
		verdict.Reason = models.ReasonNewInstruction
		return verdict
	}

	switch {
	case latestInstruction.CommentID > stateInstructionID:
		verdict.Action = models.ActionExecute
		verdict.Reason = models.ReasonNewInstruction
	case latestInstruction.CommentID == stateInstructionID:
		if snapshot.HeadSHA == latestState.Payload.LastInstruction.HeadSHA {
			verdict.Action = models.ActionSkip
			verdict.Reason = models.ReasonHeadUnchanged
		} else {
			// 前回ラウンド以降に新しいコミットが積まれている
			verdict.Action = models.ActionExecute
			verdict.Reason = models.ReasonHeadChanged
		}
	default:
		// 遅延配送などで古い指示しか見えていない
		verdict.Action = models.ActionSkip
		verdict.Reason = models.ReasonStaleInstruction
	}

	return verdict
}

// idで新しさを比較する（idは作成順に単調増加、同一idはcreatedAtで比較）
func newerInstruction(a, b *models.Instruction) bool {
	if a.CommentID != b.CommentID {
		return a.CommentID > b.CommentID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// スナップショット取得と判定をまとめた入口
// 副作用はなく、リトライしても安全。無効時はsnapshotを取得せずnilを返す
func Evaluate(ctx context.Context, client *github.Client, ref PullRequestRef, opts Options) (models.Verdict, *Snapshot, error) {
	// 無効時は取得前に打ち切る
	if !opts.Enabled {
		log.Printf("keepalive is disabled: skip (%s)", ref)
		return models.Verdict{Action: models.ActionSkip, Reason: models.ReasonIneligible}, nil, nil
	}

	snapshot, err := FetchSnapshot(ctx, client, ref)
	if err != nil {
		return models.Verdict{}, nil, err
	}

	verdict := Decide(snapshot, opts)
	log.Printf("keepalive verdict for %s: action=%s reason=%s instruction=%s trace=%s",
		ref, verdict.Action, verdict.Reason, verdict.InstructionID, verdict.Trace)

	return verdict, snapshot, nil
}
