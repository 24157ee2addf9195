package services

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"codex-keepalive/models"
)

// execute判定をSlackに通知するクライアント
// トークンかチャンネルが未設定なら通知は無効になる
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		log.Println("slack notification is disabled (token or channel not set)")
		return nil
	}

	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

// execute判定を通知する関数
// 通知の失敗は判定そのものに影響させない（呼び出し側でログのみ）
func (n *SlackNotifier) NotifyExecute(ctx context.Context, ref PullRequestRef, verdict models.Verdict) error {
	if n == nil {
		return nil
	}

	text := fmt.Sprintf("🤖 keepalive round starting for %s (reason: %s, instruction: %s, trace: %s)",
		ref, verdict.Reason, verdict.InstructionID, verdict.Trace)

	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post slack notification: %w", err)
	}

	return nil
}
