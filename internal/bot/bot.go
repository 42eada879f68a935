// Package bot is the Telegram front-end: every incoming link is summarized
// with the operator's credential.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"urlsum/internal/ratelimiter"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Runner executes one summarization invocation.
type Runner interface {
	Run(ctx context.Context, credential string, rawURL string) (string, error)
}

type sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *tgbot.SendChatActionParams) (bool, error)
}

type Config struct {
	Token        string
	Credential   string
	AllowedUsers []int64
	Provider     string
	Model        string
}

type Bot struct {
	api          *tgbot.Bot
	sender       sender
	runner       Runner
	credential   string
	allowedUsers []int64
	welcomeText  string
	gate         *ratelimiter.Gate
	limiter      *ratelimiter.Limiter
	log          *slog.Logger
}

func New(cfg Config, runner Runner, log *slog.Logger) (*Bot, error) {
	b := newBot(cfg, runner, ratelimiter.New(log), log)

	api, err := tgbot.New(strings.TrimSpace(cfg.Token), tgbot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b.api = api
	b.sender = api

	return b, nil
}

func newBot(cfg Config, runner Runner, limiter *ratelimiter.Limiter, log *slog.Logger) *Bot {
	return &Bot{
		runner:       runner,
		credential:   cfg.Credential,
		allowedUsers: cfg.AllowedUsers,
		welcomeText:  welcomeText(cfg.Provider, cfg.Model),
		gate:         ratelimiter.NewGate(),
		limiter:      limiter,
		log:          log,
	}
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	message := update.Message
	if message == nil {
		return
	}

	var userID int64
	if message.From != nil {
		userID = message.From.ID
	}

	if !b.userAllowed(userID) {
		b.log.DebugContext(ctx, "User is not allowed",
			"userID", userID,
			"chatID", message.Chat.ID,
			"chatType", message.Chat.Type)

		return
	}

	if err := b.handleMessage(ctx, message); err != nil {
		b.log.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"chatID", message.Chat.ID,
			"userID", userID,
			"chatType", message.Chat.Type,
			"messageID", message.ID)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}
