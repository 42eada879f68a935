package bot

import (
	"context"
	"strings"

	"urlsum/internal/markdown"
	"urlsum/internal/pipeline"

	"github.com/go-telegram/bot/models"
	"mvdan.cc/xurls/v2"
)

const busyText = "Still working on your previous link, please wait."

//nolint:gochecknoglobals // Compiled once, read-only.
var (
	strictURLRe  = xurls.Strict()
	relaxedURLRe = xurls.Relaxed()
)

func welcomeText(provider string, model string) string {
	return markdown.Bold("Summarize Text From YT or Website") + "\n\n" +
		markdown.Escape("Send me a link to a YouTube video or a web page and I will reply with a 300-word summary.") +
		"\n\n" +
		markdown.Escape("Summaries are written by ") + markdown.Code(model) +
		markdown.Escape(" via "+provider+".")
}

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	text := strings.TrimSpace(message.Text)
	if text == "" {
		text = strings.TrimSpace(message.Caption)
	}

	switch {
	case text == "":
		// Stickers, voice notes and the like.
		return nil
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		return b.sendMarkdown(ctx, chatID, b.welcomeText)
	default:
		return b.handleSummarize(ctx, chatID, text)
	}
}

// handleSummarize runs one invocation for the first link in text. Text
// without a link still goes through the pipeline so the user gets the usual
// missing-input reply.
func (b *Bot) handleSummarize(ctx context.Context, chatID int64, text string) error {
	release, ok := b.gate.TryAcquire(chatID)
	if !ok {
		return b.sendText(ctx, chatID, busyText)
	}
	defer release()

	rawURL := findURL(text)

	return b.withSpinner(ctx, chatID, func() error {
		summary, err := b.runner.Run(ctx, b.credential, rawURL)
		if err != nil {
			return b.sendText(ctx, chatID, pipeline.Message(err))
		}

		return b.sendText(ctx, chatID, summary)
	})
}

// findURL prefers links with a scheme. A bare domain is still returned so the
// validator can report it as malformed.
func findURL(text string) string {
	if u := strictURLRe.FindString(text); u != "" {
		return u
	}
	return relaxedURLRe.FindString(text)
}
