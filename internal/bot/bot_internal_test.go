package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"unicode/utf16"

	"urlsum/internal/pipeline"
	"urlsum/internal/ratelimiter"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*tgbot.SendMessageParams
	actions  int
}

func (f *fakeSender) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, params)
	return &models.Message{}, nil
}

func (f *fakeSender) SendChatAction(_ context.Context, _ *tgbot.SendChatActionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actions++
	return true, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	texts := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		texts = append(texts, m.Text)
	}
	return texts
}

type fakeRunner struct {
	summary     string
	err         error
	credentials []string
	urls        []string
}

func (f *fakeRunner) Run(_ context.Context, credential string, rawURL string) (string, error) {
	f.credentials = append(f.credentials, credential)
	f.urls = append(f.urls, rawURL)
	return f.summary, f.err
}

func newTestBot(runner Runner, allowedUsers ...int64) (*Bot, *fakeSender) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := newBot(Config{
		Credential:   "operator-key",
		AllowedUsers: allowedUsers,
		Provider:     "groq",
		Model:        "llama-3.3-70b-versatile",
	}, runner, ratelimiter.NewWithRates(0, 0, log), log)

	s := &fakeSender{}
	b.sender = s

	return b, s
}

func update(userID int64, chatID int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   1,
			From: &models.User{ID: userID},
			Chat: models.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestStartCommand(t *testing.T) {
	runner := &fakeRunner{}
	b, s := newTestBot(runner)

	b.handleUpdate(context.Background(), nil, update(1, 1, "/start"))

	require.Len(t, s.messages, 1)
	assert.Equal(t, models.ParseModeMarkdown, s.messages[0].ParseMode)
	assert.Contains(t, s.messages[0].Text, "`llama-3.3-70b-versatile`")
	assert.Empty(t, runner.urls)
}

func TestSummarizesFirstURL(t *testing.T) {
	runner := &fakeRunner{summary: "A short summary."}
	b, s := newTestBot(runner)

	b.handleUpdate(context.Background(), nil,
		update(1, 1, "look at https://example.com/a and https://example.com/b"))

	assert.Equal(t, []string{"https://example.com/a"}, runner.urls)
	assert.Equal(t, []string{"operator-key"}, runner.credentials)
	assert.Equal(t, []string{"A short summary."}, s.texts())
	assert.Empty(t, s.messages[0].ParseMode)
}

func TestReplyWithPipelineMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		err     error
		wantURL string
		want    string
	}{
		{
			name: "no link",
			text: "hello there",
			err:  &pipeline.Error{Kind: pipeline.KindMissingFields},
			want: "Please provide the information to get started.",
		},
		{
			name:    "bare domain",
			text:    "example.com",
			err:     &pipeline.Error{Kind: pipeline.KindMalformedURL},
			wantURL: "example.com",
			want:    "Please enter a valid URL (YouTube or website).",
		},
		{
			name:    "exception",
			text:    "https://example.com/gone",
			err:     &pipeline.Error{Kind: pipeline.KindExtraction, Err: errors.New("unexpected status: 404")},
			wantURL: "https://example.com/gone",
			want:    "Exception: unexpected status: 404",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			runner := &fakeRunner{err: test.err}
			b, s := newTestBot(runner)

			b.handleUpdate(context.Background(), nil, update(1, 1, test.text))

			assert.Equal(t, []string{test.wantURL}, runner.urls)
			assert.Equal(t, []string{test.want}, s.texts())
		})
	}
}

func TestMessagesWithoutText(t *testing.T) {
	runner := &fakeRunner{summary: "Captioned."}
	b, s := newTestBot(runner)

	b.handleUpdate(context.Background(), nil, update(1, 1, ""))
	assert.Empty(t, runner.urls)
	assert.Empty(t, s.texts())

	captioned := update(1, 1, "")
	captioned.Message.Caption = "read this https://example.com/post"
	b.handleUpdate(context.Background(), nil, captioned)

	assert.Equal(t, []string{"https://example.com/post"}, runner.urls)
	assert.Equal(t, []string{"Captioned."}, s.texts())
}

func TestUserNotAllowed(t *testing.T) {
	runner := &fakeRunner{summary: "x"}
	b, s := newTestBot(runner, 42)

	b.handleUpdate(context.Background(), nil, update(7, 7, "https://example.com/"))
	assert.Empty(t, runner.urls)
	assert.Empty(t, s.texts())

	b.handleUpdate(context.Background(), nil, update(42, 42, "https://example.com/"))
	assert.Len(t, runner.urls, 1)
}

func TestBusyChatIsRefused(t *testing.T) {
	runner := &fakeRunner{summary: "x"}
	b, s := newTestBot(runner)

	release, ok := b.gate.TryAcquire(5)
	require.True(t, ok)
	defer release()

	b.handleUpdate(context.Background(), nil, update(1, 5, "https://example.com/"))

	assert.Empty(t, runner.urls)
	assert.Equal(t, []string{busyText}, s.texts())
}

func TestLongSummaryIsSplit(t *testing.T) {
	summary := strings.Repeat("word ", 2000)
	runner := &fakeRunner{summary: summary}
	b, s := newTestBot(runner)

	b.handleUpdate(context.Background(), nil, update(1, 1, "https://example.com/"))

	texts := s.texts()
	require.Len(t, texts, 3)
	for _, text := range texts {
		assert.LessOrEqual(t, len(utf16.Encode([]rune(text))), maxMessageLength)
	}
	assert.Equal(t, strings.Fields(summary), strings.Fields(strings.Join(texts, " ")))
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"empty", "", 10, nil},
		{"line boundary", "aaaa\nbbbb", 6, []string{"aaaa", "bbbb"}},
		{"word boundary", "aaa bbb ccc", 8, []string{"aaa bbb", "ccc"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"surrogate pairs", "😀😀😀", 4, []string{"😀😀", "😀"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, splitMessage(test.text, test.limit))
		})
	}
}

func TestFindURL(t *testing.T) {
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", findURL("watch https://youtu.be/dQw4w9WgXcQ now"))
	assert.Equal(t, "example.org/page", findURL("see example.org/page"))
	assert.Empty(t, findURL("no links here"))
}
