package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"codex-keepalive/models"
)

// GitHubクライアントを作成する関数
// トークンは環境変数からではなくmainから値として受け取る
func NewGitHubClient(token string) *github.Client {
	if token == "" {
		log.Println("github token is not set")
		return github.NewClient(nil) // 認証なしのクライアント
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc)
}

// 評価対象のリポジトリとPR番号
type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ゲートが判定に使うPRとコメント履歴のスナップショット
// 取得は全て判定ロジックの前に直列で済ませる
type Snapshot struct {
	HeadSHA  string
	HeadRef  string
	BaseRef  string
	IsFork   bool
	Title    string
	Body     string
	Comments []models.Comment
}

// API・ネットワーク起因の一時的な取得失敗
// 呼び出し側は評価全体をリトライする（部分的な結果は信用しない）
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch failure (%s): %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// PRのメタデータを取得する関数
func FetchPullRequest(ctx context.Context, client *github.Client, ref PullRequestRef) (*github.PullRequest, error) {
	pr, _, err := client.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, &TransientFetchError{Op: "get pull request", Err: err}
	}
	return pr, nil
}

// PRの全コメントを作成順に取得し、指示マーカー付きのコメントにはリアクションも取得する関数
func FetchComments(ctx context.Context, client *github.Client, ref PullRequestRef) ([]models.Comment, error) {
	opts := &github.IssueListCommentsOptions{
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var comments []models.Comment
	for {
		page, resp, err := client.Issues.ListComments(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, &TransientFetchError{Op: "list comments", Err: err}
		}

		for _, ic := range page {
			comment := models.Comment{
				ID:        ic.GetID(),
				CreatedAt: ic.GetCreatedAt().Time,
				Author:    ic.GetUser().GetLogin(),
				Body:      ic.GetBody(),
			}

			// リアクション取得はAPIコストが高いので指示マーカー付きコメントに限定する
			if instructionMarkerRe.MatchString(comment.Body) {
				reactions, err := fetchReactions(ctx, client, ref, comment.ID)
				if err != nil {
					return nil, err
				}
				comment.Reactions = reactions
			}

			comments = append(comments, comment)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

func fetchReactions(ctx context.Context, client *github.Client, ref PullRequestRef, commentID int64) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}

	var contents []string
	for {
		page, resp, err := client.Reactions.ListIssueCommentReactions(ctx, ref.Owner, ref.Repo, commentID, opts)
		if err != nil {
			return nil, &TransientFetchError{Op: "list reactions", Err: err}
		}

		for _, r := range page {
			contents = append(contents, r.GetContent())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return contents, nil
}

// PRとコメント履歴のスナップショットを取得する関数
func FetchSnapshot(ctx context.Context, client *github.Client, ref PullRequestRef) (*Snapshot, error) {
	pr, err := FetchPullRequest(ctx, client, ref)
	if err != nil {
		return nil, err
	}

	comments, err := FetchComments(ctx, client, ref)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		HeadSHA:  pr.GetHead().GetSHA(),
		HeadRef:  pr.GetHead().GetRef(),
		BaseRef:  pr.GetBase().GetRef(),
		IsFork:   pr.GetHead().GetRepo().GetFork(),
		Title:    pr.GetTitle(),
		Body:     pr.GetBody(),
		Comments: comments,
	}, nil
}
