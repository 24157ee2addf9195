package services

import (
	"encoding/json"
	"log"
	"regexp"
	"strconv"

	"codex-keepalive/models"
)

var (
	instructionMarkerRe = regexp.MustCompile(`(?m)^\s*<!--\s*codex-keepalive-marker\s*-->\s*$`)
	instructionRoundRe  = regexp.MustCompile(`<!--\s*codex-keepalive-round:\s*(\d+)\s*-->`)
	instructionTraceRe  = regexp.MustCompile(`<!--\s*codex-keepalive-trace:\s*([^\s]+)\s*-->`)
	stateMarkerRe       = regexp.MustCompile(`<!--\s*keepalive-state:v1\s+(\{.*\})\s*-->`)
)

// コメント本文のマーカーを一度だけパースして分類する関数
// botLoginはstateコメントを書く自動化アカウントのログイン名
func ParseComment(c models.Comment, botLogin string) models.ParsedComment {
	if m := stateMarkerRe.FindStringSubmatch(c.Body); m != nil {
		// stateマーカーは自動化アカウントのコメントのみ有効
		if botLogin != "" && c.Author != botLogin {
			log.Printf("state marker from unexpected author %s on comment %d: ignored", c.Author, c.ID)
			return models.ParsedComment{Kind: models.CommentKindUnrecognized}
		}

		state := &models.StateComment{
			CommentID:  c.ID,
			CreatedAt:  c.CreatedAt,
			RawPayload: m[1],
			Payload:    parseStatePayload(m[1]),
		}
		return models.ParsedComment{Kind: models.CommentKindState, State: state}
	}

	if instructionMarkerRe.MatchString(c.Body) {
		// 自動化アカウント自身のコメントは指示として扱わない
		if botLogin != "" && c.Author == botLogin {
			return models.ParsedComment{Kind: models.CommentKindUnrecognized}
		}

		roundMatch := instructionRoundRe.FindStringSubmatch(c.Body)
		traceMatch := instructionTraceRe.FindStringSubmatch(c.Body)

		// round か trace が欠けている指示コメントは候補から外す（致命的エラーにはしない）
		if roundMatch == nil || traceMatch == nil {
			log.Printf("instruction marker on comment %d is missing round or trace: excluded", c.ID)
			return models.ParsedComment{Kind: models.CommentKindUnrecognized}
		}

		round, err := strconv.Atoi(roundMatch[1])
		if err != nil {
			log.Printf("instruction round on comment %d is not a number: excluded", c.ID)
			return models.ParsedComment{Kind: models.CommentKindUnrecognized}
		}

		instruction := &models.Instruction{
			CommentID: c.ID,
			CreatedAt: c.CreatedAt,
			Author:    c.Author,
			Round:     round,
			Trace:     traceMatch[1],
			Reactions: c.Reactions,
		}
		return models.ParsedComment{Kind: models.CommentKindInstruction, Instruction: instruction}
	}

	return models.ParsedComment{Kind: models.CommentKindUnrecognized}
}

// stateペイロードのJSONをパースする
// 壊れたJSONや必須フィールド欠落はnilを返す（state-unreadable扱いになる）
func parseStatePayload(raw string) *models.StatePayload {
	var payload models.StatePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Printf("state payload is not valid json: %v", err)
		return nil
	}

	if payload.LastInstruction.CommentID == "" || payload.LastInstruction.HeadSHA == "" {
		log.Printf("state payload is missing comment_id or head_sha")
		return nil
	}

	return &payload
}
