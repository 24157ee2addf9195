package services

import (
	"context"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codex-keepalive/models"
)

func TestBuildStateCommentBody(t *testing.T) {
	body, err := BuildStateCommentBody(200, "abc123")

	require.NoError(t, err)
	assert.Equal(t, `<!-- keepalive-state:v1 {"last_instruction":{"comment_id":"200","head_sha":"abc123"}} -->`, body)
}

func TestBuildStateCommentBodyRoundTrip(t *testing.T) {
	// 組み立てたstateコメントはゲートのパーサでそのまま読める
	body, err := BuildStateCommentBody(305, "def456")
	require.NoError(t, err)

	parsed := ParseComment(models.Comment{
		ID:     400,
		Author: "keepalive-bot",
		Body:   body,
	}, "keepalive-bot")

	require.Equal(t, models.CommentKindState, parsed.Kind)
	require.NotNil(t, parsed.State.Payload)
	assert.Equal(t, "305", parsed.State.Payload.LastInstruction.CommentID)
	assert.Equal(t, "def456", parsed.State.Payload.LastInstruction.HeadSHA)
}

func TestPostStateComment(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Post("/repos/testorg/testrepo/issues/5/comments").
		Reply(201).
		JSON(map[string]interface{}{"id": 999})

	client := github.NewClient(nil)
	ref := PullRequestRef{Owner: "testorg", Repo: "testrepo", Number: 5}

	err := PostStateComment(context.Background(), client, ref, 200, "abc123")

	assert.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestPostStateCommentFailure(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Post("/repos/testorg/testrepo/issues/5/comments").
		Reply(502)

	client := github.NewClient(nil)
	ref := PullRequestRef{Owner: "testorg", Repo: "testrepo", Number: 5}

	err := PostStateComment(context.Background(), client, ref, 200, "abc123")

	assert.Error(t, err)
}
