package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"codex-keepalive/handlers"
	"codex-keepalive/models"
	"codex-keepalive/services"
)

func main() {
	// .envがあれば読む（本番では環境変数を直接渡す）
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	db, err := gorm.Open(sqlite.Open("keepalive_verdicts.db"), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.VerdictRecord{}); err != nil {
		log.Fatalf("failed to migrate db: %v", err)
	}

	// 環境変数はここで一度だけ読み、以降は値として渡す
	opts := services.Options{
		Enabled:    os.Getenv("KEEPALIVE_ENABLED") == "true",
		AllowForks: os.Getenv("KEEPALIVE_ALLOW_FORKS") == "true",
		BotLogin:   os.Getenv("KEEPALIVE_BOT_LOGIN"),
	}

	// 監査レコードは30日で掃除する
	services.StartVerdictCleanup(db, 6*time.Hour, 30*24*time.Hour)

	client := services.NewGitHubClient(os.Getenv("GITHUB_TOKEN"))
	notifier := services.NewSlackNotifier(os.Getenv("SLACK_BOT_TOKEN"), os.Getenv("SLACK_CHANNEL_ID"))
	secret := []byte(os.Getenv("GITHUB_WEBHOOK_SECRET"))

	r := gin.Default()
	handler := handlers.NewKeepaliveHandler(db, client, opts, secret, notifier)
	r.POST("/webhook", handler.HandleWebhook)
	r.GET("/verdicts", handler.ListVerdicts)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
