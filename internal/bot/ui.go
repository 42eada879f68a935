package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	sendSpinnerInterval = 4 * time.Second
	// maxMessageLength is counted in UTF-16 code units, as Telegram does.
	maxMessageLength = 4096
)

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	_, err := b.sender.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil && ctx.Err() == nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err,
			"chatID", chatID)
	}
}

func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendTyping(ctx, chatID)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.sendTyping(ctx, chatID)
			}
		}
	}()

	return fn()
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	for i, chunk := range splitMessage(text, maxMessageLength) {
		if err := b.send(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			return fmt.Errorf("send chunk %d: %w", i, err)
		}
	}

	return nil
}

func (b *Bot) sendMarkdown(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
}

func (b *Bot) send(ctx context.Context, params *tgbot.SendMessageParams) error {
	chatID, _ := params.ChatID.(int64)

	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("wait rate limiter: %w", err)
	}

	if _, err := b.sender.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// splitMessage cuts text into chunks of at most limit UTF-16 units,
// preferring line and then word boundaries.
func splitMessage(text string, limit int) []string {
	var chunks []string

	for text != "" {
		cut := cutIndex(text, limit)
		if cut == len(text) {
			chunks = append(chunks, text)
			break
		}

		chunk := text[:cut]
		if i := strings.LastIndexByte(chunk, '\n'); i > 0 {
			chunk = chunk[:i]
		} else if i = strings.LastIndexByte(chunk, ' '); i > 0 {
			chunk = chunk[:i]
		}

		chunks = append(chunks, chunk)
		text = strings.TrimLeft(text[len(chunk):], "\n ")
	}

	return chunks
}

// cutIndex returns the byte offset of the first rune that would overflow limit.
func cutIndex(text string, limit int) int {
	units := 0

	for i, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			return i
		}
		units += n
	}

	return len(text)
}
