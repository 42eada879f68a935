package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"urlsum/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/tidwall/gjson"
)

const (
	DefaultYouTubeBaseURL = "https://www.youtube.com"

	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "20.10.38"

	playabilityOK       = "OK"
	generatedTrackKind  = "asr"
	consentCookie       = "CONSENT=YES+cb"
	recaptchaPageMarker = `class="g-recaptcha"`
)

var (
	videoIDRe      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	innertubeKeyRe = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([A-Za-z0-9_-]+)"`)
	markupRe       = regexp.MustCompile(`<[^>]*>`)

	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	ErrVideoUnplayable     = errors.New("video is unavailable")
)

type YouTubeConfig struct {
	UserAgent string
	// Languages are tried in order; the first available track wins otherwise.
	Languages []string
	// BaseURL overrides DefaultYouTubeBaseURL.
	BaseURL string
}

// YouTube extracts the caption transcript of a video, without metadata.
type YouTube struct {
	client    *http.Client
	userAgent string
	languages []string
	baseURL   string
	log       *slog.Logger
}

var _ Extractor = (*YouTube)(nil)

type captionTrack struct {
	baseURL      string
	languageCode string
	generated    bool
}

func NewYouTube(client *http.Client, cfg YouTubeConfig, log *slog.Logger) *YouTube {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultYouTubeBaseURL
	}

	return &YouTube{
		client:    client,
		userAgent: cfg.UserAgent,
		languages: cfg.Languages,
		baseURL:   baseURL,
		log:       log,
	}
}

func (y *YouTube) Extract(ctx context.Context, rawURL string) ([]domain.Fragment, error) {
	videoID, err := VideoID(rawURL)
	if err != nil {
		return nil, err
	}

	apiKey, err := y.fetchInnertubeAPIKey(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch innertube API key (videoID = %s): %w", videoID, err)
	}

	tracks, err := y.fetchCaptionTracks(ctx, videoID, apiKey)
	if err != nil {
		return nil, fmt.Errorf("fetch caption tracks (videoID = %s): %w", videoID, err)
	}

	track := pickTrack(tracks, y.languages)
	y.log.DebugContext(ctx, "Caption track is selected",
		"videoID", videoID,
		"languageCode", track.languageCode,
		"generated", track.generated,
		"tracksCount", len(tracks))

	transcript, err := y.fetchTranscript(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript (videoID = %s): %w", videoID, err)
	}

	return []domain.Fragment{{Text: transcript}}, nil
}

// VideoID reads the 11-character video ID from the common URL shapes.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string

	switch {
	case host == "youtu.be":
		id = parts[0]
	case strings.HasSuffix(host, "youtube.com"):
		switch parts[0] {
		case "watch":
			id = u.Query().Get("v")
		case "shorts", "embed", "live", "v":
			if len(parts) > 1 {
				id = parts[1]
			}
		}
	}

	if !videoIDRe.MatchString(id) {
		return "", fmt.Errorf("could not extract video ID from URL: %s", rawURL)
	}

	return id, nil
}

func (y *YouTube) fetchInnertubeAPIKey(ctx context.Context, videoID string) (string, error) {
	watchURL := y.baseURL + "/watch?v=" + url.QueryEscape(videoID)

	body, err := y.do(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	var apiKey string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := innertubeKeyRe.FindStringSubmatch(s.Text()); len(m) == 2 {
			apiKey = m[1]
			return false
		}
		return true
	})

	if apiKey != "" {
		return apiKey, nil
	}

	if bytes.Contains(body, []byte(recaptchaPageMarker)) {
		return "", errors.New("YouTube is blocking requests from this IP")
	}

	return "", errors.New("innertube API key is missing")
}

type innertubeRequest struct {
	Context innertubeContext `json:"context"`
	VideoID string           `json:"videoId"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

func (y *YouTube) fetchCaptionTracks(ctx context.Context, videoID string, apiKey string) ([]captionTrack, error) {
	payload, err := json.Marshal(innertubeRequest{
		Context: innertubeContext{Client: innertubeClient{
			ClientName:    innertubeClientName,
			ClientVersion: innertubeClientVersion,
		}},
		VideoID: videoID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal player request: %w", err)
	}

	playerURL := y.baseURL + "/youtubei/v1/player?key=" + url.QueryEscape(apiKey)

	body, err := y.do(ctx, http.MethodPost, playerURL, payload)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.New("player response is not valid JSON")
	}

	player := gjson.ParseBytes(body)

	if status := player.Get("playabilityStatus.status").String(); status != playabilityOK {
		reason := strings.TrimSpace(player.Get("playabilityStatus.reason").String())
		return nil, fmt.Errorf("%w (status = %s, reason = %s)", ErrVideoUnplayable, status, reason)
	}

	rawTracks := player.Get("captions.playerCaptionsTracklistRenderer.captionTracks").Array()

	tracks := make([]captionTrack, 0, len(rawTracks))
	for _, t := range rawTracks {
		baseURL := t.Get("baseUrl").String()
		if baseURL == "" {
			continue
		}

		tracks = append(tracks, captionTrack{
			baseURL:      strings.Replace(baseURL, "&fmt=srv3", "", 1),
			languageCode: t.Get("languageCode").String(),
			generated:    t.Get("kind").String() == generatedTrackKind,
		})
	}

	if len(tracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}

	return tracks, nil
}

// pickTrack prefers manual tracks in the requested languages, then generated
// ones, then the first track.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, lang := range languages {
		var generated *captionTrack

		for i := range tracks {
			if !strings.EqualFold(tracks[i].languageCode, lang) {
				continue
			}
			if !tracks[i].generated {
				return tracks[i]
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}

		if generated != nil {
			return *generated
		}
	}

	for _, t := range tracks {
		if !t.generated {
			return t
		}
	}

	return tracks[0]
}

func (y *YouTube) fetchTranscript(ctx context.Context, track captionTrack) (string, error) {
	body, err := y.do(ctx, http.MethodGet, track.baseURL, nil)
	if err != nil {
		return "", err
	}

	doc := etree.NewDocument()
	if err = doc.ReadFromBytes(body); err != nil {
		return "", fmt.Errorf("parse transcript XML: %w", err)
	}

	var segments []string
	for _, el := range doc.FindElements("//text") {
		text := markupRe.ReplaceAllString(html.UnescapeString(el.Text()), "")
		text = strings.Join(strings.Fields(text), " ")
		if text != "" {
			segments = append(segments, text)
		}
	}

	if len(segments) == 0 {
		return "", errors.New("transcript is empty")
	}

	return strings.Join(segments, " "), nil
}

func (y *YouTube) do(ctx context.Context, method string, rawURL string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	setBrowserHeaders(req, y.userAgent)
	req.Header.Set("Cookie", consentCookie)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			y.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"method", method,
				"operation", "youtube")
		}
	}()

	if err = checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
