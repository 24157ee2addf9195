package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/go-github/v68/github"

	"codex-keepalive/models"
)

// stateコメント本文を組み立てる関数
// ゲート自身はstateを書かない。1ラウンド終えたワーカーがこれを使って書き込む
func BuildStateCommentBody(instructionID int64, headSHA string) (string, error) {
	payload := models.StatePayload{
		LastInstruction: models.StateLastInstruction{
			CommentID: strconv.FormatInt(instructionID, 10),
			HeadSHA:   headSHA,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state payload: %w", err)
	}

	return fmt.Sprintf("<!-- keepalive-state:v1 %s -->", data), nil
}

// ラウンド完了後のstateコメントをPRに投稿する関数
func PostStateComment(ctx context.Context, client *github.Client, ref PullRequestRef, instructionID int64, headSHA string) error {
	body, err := BuildStateCommentBody(instructionID, headSHA)
	if err != nil {
		return err
	}

	comment := &github.IssueComment{Body: github.Ptr(body)}
	_, _, err = client.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, comment)
	if err != nil {
		return fmt.Errorf("failed to post state comment to %s: %w", ref, err)
	}

	return nil
}
