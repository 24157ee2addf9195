package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v68/github"
	"gorm.io/gorm"

	"codex-keepalive/services"
)

type KeepaliveHandler struct {
	DB            *gorm.DB
	GitHub        *github.Client
	Options       services.Options
	WebhookSecret []byte
	Notifier      *services.SlackNotifier
}

func NewKeepaliveHandler(db *gorm.DB, client *github.Client, opts services.Options, secret []byte, notifier *services.SlackNotifier) *KeepaliveHandler {
	return &KeepaliveHandler{
		DB:            db,
		GitHub:        client,
		Options:       opts,
		WebhookSecret: secret,
		Notifier:      notifier,
	}
}

// GitHubのwebhookを受けてkeepaliveゲートを評価するハンドラ
// issue_comment(created) と pull_request(synchronize) だけが評価のトリガーになる
func (h *KeepaliveHandler) HandleWebhook(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, h.WebhookSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(c.Request), payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot parse webhook"})
		return
	}

	var ref services.PullRequestRef

	switch e := event.(type) {
	case *github.IssueCommentEvent:
		if e.GetAction() != "created" || !e.GetIssue().IsPullRequest() {
			c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
			return
		}
		ref = services.PullRequestRef{
			Owner:  e.GetRepo().GetOwner().GetLogin(),
			Repo:   e.GetRepo().GetName(),
			Number: e.GetIssue().GetNumber(),
		}
	case *github.PullRequestEvent:
		if e.GetAction() != "synchronize" {
			c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
			return
		}
		ref = services.PullRequestRef{
			Owner:  e.GetRepo().GetOwner().GetLogin(),
			Repo:   e.GetRepo().GetName(),
			Number: e.GetPullRequest().GetNumber(),
		}
	default:
		c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
		return
	}

	h.evaluate(c, ref)
}

func (h *KeepaliveHandler) evaluate(c *gin.Context, ref services.PullRequestRef) {
	verdict, snapshot, err := services.Evaluate(c.Request.Context(), h.GitHub, ref, h.Options)
	if err != nil {
		var transient *services.TransientFetchError
		if errors.As(err, &transient) {
			// 一時的な取得失敗。呼び出し側（webhookの再配送）にリトライさせる
			log.Printf("evaluation failed for %s: %v", ref, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "transient fetch failure"})
			return
		}

		log.Printf("evaluation failed for %s: %v", ref, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	// ineligibleで打ち切った場合はPRを取得していないのでhead SHAは空
	headSHA := ""
	if snapshot != nil {
		headSHA = snapshot.HeadSHA
	}

	if _, err := services.RecordVerdict(h.DB, ref, headSHA, verdict); err != nil {
		// 監査レコードの保存失敗は判定結果の返却を妨げない
		log.Printf("verdict record save error: %v", err)
	}

	if verdict.ShouldExecute() && h.Notifier != nil {
		if err := h.Notifier.NotifyExecute(c.Request.Context(), ref, verdict); err != nil {
			log.Printf("slack notification error: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"action":         verdict.Action,
		"reason":         verdict.Reason,
		"instruction_id": verdict.InstructionID,
		"trace":          verdict.Trace,
	})
}

// PRの判定履歴を新しい順で返すハンドラ
func (h *KeepaliveHandler) ListVerdicts(c *gin.Context) {
	repo := c.Query("repo")
	prNumber, err := strconv.Atoi(c.Query("pr"))
	if repo == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo and pr query parameters are required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := services.ListRecentVerdicts(h.DB, repo, prNumber, limit)
	if err != nil {
		log.Printf("verdict list error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list verdicts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verdicts": records})
}
