package extractor_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"urlsum/internal/config"
	"urlsum/internal/domain"
	"urlsum/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	testVideoID = "dQw4w9WgXcQ"
	watchPage   = `<html><head><script>ytcfg.set({"INNERTUBE_API_KEY": "test-key", "OTHER": 1});</script></head><body></body></html>`
	transcript  = `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="0.5" dur="1.2">Hello &amp;amp; welcome</text>` +
		`<text start="1.7" dur="2.0">it&amp;#39;s a   &lt;font color=&quot;#fff&quot;&gt;test&lt;/font&gt;</text>` +
		`<text start="3.7" dur="1.0">   </text>` +
		`<text start="4.7" dur="1.0">goodbye</text>` +
		`</transcript>`
)

type fakeYouTube struct {
	server        *httptest.Server
	player        func(baseURL string) string
	watch         string
	playerCalls   atomic.Int32
	playerVideoID atomic.Value
	timedtextLang atomic.Value
}

func newFakeYouTube(t *testing.T, player func(baseURL string) string) *fakeYouTube {
	t.Helper()

	f := &fakeYouTube{player: player, watch: watchPage}

	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testVideoID, r.URL.Query().Get("v"))
		_, _ = w.Write([]byte(f.watch))
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		f.playerCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		f.playerVideoID.Store(gjson.GetBytes(body, "videoId").String())

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.player(f.server.URL)))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("fmt"))
		f.timedtextLang.Store(r.URL.Query().Get("lang"))
		_, _ = w.Write([]byte(transcript))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeYouTube) extractor(languages ...string) *extractor.YouTube {
	return extractor.NewYouTube(
		extractor.NewHTTPClient(0, false),
		extractor.YouTubeConfig{UserAgent: config.DefaultUserAgent, Languages: languages, BaseURL: f.server.URL},
		discardLogger(),
	)
}

func playerWithTracks(baseURL string) string {
	return `{
  "playabilityStatus": {"status": "OK"},
  "captions": {"playerCaptionsTracklistRenderer": {"captionTracks": [
    {"baseUrl": "` + baseURL + `/api/timedtext?v=` + testVideoID + `&lang=en&kind=asr&fmt=srv3", "languageCode": "en", "kind": "asr"},
    {"baseUrl": "` + baseURL + `/api/timedtext?v=` + testVideoID + `&lang=de&fmt=srv3", "languageCode": "de"},
    {"baseUrl": "` + baseURL + `/api/timedtext?v=` + testVideoID + `&lang=en-manual&fmt=srv3", "languageCode": "en"}
  ]}}
}`
}

func TestYouTubeExtract(t *testing.T) {
	t.Parallel()

	yt := newFakeYouTube(t, playerWithTracks)

	fragments, err := yt.extractor("en").Extract(context.Background(), "https://www.youtube.com/watch?v="+testVideoID+"&t=42")
	require.NoError(t, err)

	assert.Equal(t, []domain.Fragment{{Text: "Hello & welcome it's a test goodbye"}}, fragments)
	assert.Equal(t, testVideoID, yt.playerVideoID.Load())
	assert.Equal(t, "en-manual", yt.timedtextLang.Load(), "manual track must win over generated one")
}

func TestYouTubeExtractLanguagePreference(t *testing.T) {
	t.Parallel()

	yt := newFakeYouTube(t, playerWithTracks)

	_, err := yt.extractor("fr", "de").Extract(context.Background(), "https://youtu.be/"+testVideoID)
	require.NoError(t, err)
	assert.Equal(t, "de", yt.timedtextLang.Load())
}

func TestYouTubeExtractErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		watch   string
		player  string
		wantErr error
		wantMsg string
	}{
		{
			name:    "transcripts disabled",
			player:  `{"playabilityStatus": {"status": "OK"}}`,
			wantErr: extractor.ErrTranscriptsDisabled,
		},
		{
			name:    "private video",
			player:  `{"playabilityStatus": {"status": "LOGIN_REQUIRED", "reason": "This video is private"}}`,
			wantErr: extractor.ErrVideoUnplayable,
			wantMsg: "This video is private",
		},
		{
			name:    "blocked IP",
			watch:   `<html><body><div class="g-recaptcha"></div></body></html>`,
			wantMsg: "blocking requests",
		},
		{
			name:    "missing key",
			watch:   `<html><body>nothing here</body></html>`,
			wantMsg: "innertube API key is missing",
		},
		{
			name:    "invalid player JSON",
			player:  `not json`,
			wantMsg: "not valid JSON",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			yt := newFakeYouTube(t, func(string) string { return test.player })
			if test.watch != "" {
				yt.watch = test.watch
			}

			_, err := yt.extractor("en").Extract(context.Background(), "https://youtu.be/"+testVideoID)
			require.Error(t, err)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
			}
			if test.wantMsg != "" {
				assert.Contains(t, err.Error(), test.wantMsg)
			}
		})
	}
}

func TestYouTubeExtractBadURLMakesNoRequest(t *testing.T) {
	t.Parallel()

	yt := newFakeYouTube(t, playerWithTracks)

	_, err := yt.extractor().Extract(context.Background(), "https://www.youtube.com/feed/subscriptions")
	require.Error(t, err)
	assert.Zero(t, yt.playerCalls.Load())
}

func TestVideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ?feature=shared", "dQw4w9WgXcQ"},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, test := range tests {
		got, err := extractor.VideoID(test.url)
		require.NoError(t, err, test.url)
		assert.Equal(t, test.want, got, test.url)
	}

	for _, bad := range []string{
		"https://www.youtube.com/",
		"https://www.youtube.com/watch?v=short",
		"https://youtu.be/",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		strings.Repeat("x", 3),
	} {
		_, err := extractor.VideoID(bad)
		require.Error(t, err, bad)
	}
}
