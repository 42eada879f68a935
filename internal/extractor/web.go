package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"urlsum/internal/domain"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	nethtml "golang.org/x/net/html"
)

type WebConfig struct {
	UserAgent string
	// Markdown keeps headings, lists and tables of the main content.
	Markdown bool
}

// Web extracts readable text from an arbitrary page.
type Web struct {
	client     *http.Client
	userAgent  string
	markdown   *converter.Converter
	feedParser *gofeed.Parser
	sanitizer  *bluemonday.Policy
	log        *slog.Logger
}

var _ Extractor = (*Web)(nil)

func NewWeb(client *http.Client, cfg WebConfig, log *slog.Logger) *Web {
	w := &Web{
		client:     client,
		userAgent:  cfg.UserAgent,
		feedParser: gofeed.NewParser(),
		sanitizer:  bluemonday.StrictPolicy(),
		log:        log,
	}

	if cfg.Markdown {
		w.markdown = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	}

	return w
}

func (w *Web) Extract(ctx context.Context, rawURL string) ([]domain.Fragment, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	body, contentType, err := w.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	var fragments []domain.Fragment

	switch {
	case isFeedMediaType(mediaType):
		fragments, err = w.feedFragments(body)
		if err != nil {
			w.log.DebugContext(ctx, "Body is not a feed, parsing as page",
				"error", err,
				"url", rawURL,
				"mediaType", mediaType)

			fragments = w.pageFragments(ctx, body, pageURL)
		}
	case mediaType == "text/plain":
		fragments = textFragments(string(body))
	default:
		fragments = w.pageFragments(ctx, body, pageURL)
	}

	if len(fragments) == 0 {
		return nil, fmt.Errorf("content is empty after parsing (URL = %s)", rawURL)
	}

	return fragments, nil
}

func (w *Web) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	setBrowserHeaders(req, w.userAgent)

	resp, err := w.client.Do(req) //nolint:gosec // User supplied URL is the whole point.
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			w.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", rawURL,
				"operation", "fetch")
		}
	}()

	if err = checkStatus(resp); err != nil {
		return nil, "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (w *Web) pageFragments(ctx context.Context, body []byte, pageURL *url.URL) []domain.Fragment {
	if text := w.trafilaturaText(ctx, body, pageURL); text != "" {
		return []domain.Fragment{{Text: text}}
	}

	if text := readabilityText(body, pageURL); text != "" {
		return []domain.Fragment{{Text: text}}
	}

	if text := bodyText(body); text != "" {
		return []domain.Fragment{{Text: text}}
	}

	return nil
}

func (w *Web) trafilaturaText(ctx context.Context, body []byte, pageURL *url.URL) string {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:    pageURL,
		EnableFallback: true,
	})
	if err != nil || result == nil {
		w.log.DebugContext(ctx, "Trafilatura found no main content",
			"error", err,
			"url", pageURL.String())

		return ""
	}

	if w.markdown != nil && result.ContentNode != nil {
		md, mdErr := w.renderMarkdown(result.ContentNode)
		if mdErr == nil && md != "" {
			return md
		}

		w.log.WarnContext(ctx, "Failed to convert main content to markdown",
			"error", mdErr,
			"url", pageURL.String())
	}

	return normalizeText(result.ContentText)
}

func (w *Web) renderMarkdown(node *nethtml.Node) (string, error) {
	var buf bytes.Buffer
	if err := nethtml.Render(&buf, node); err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}

	md, err := w.markdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("convert string: %w", err)
	}

	return strings.TrimSpace(md), nil
}

func readabilityText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}

	return normalizeText(article.TextContent)
}

func bodyText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	doc.Find("head, script, style, noscript, template, iframe, svg, nav, header, footer, aside, form").Remove()
	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return normalizeText(doc.Find("body").Text())
}

func (w *Web) feedFragments(body []byte) ([]domain.Fragment, error) {
	feed, err := w.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var fragments []domain.Fragment

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		var b strings.Builder
		if title := strings.TrimSpace(item.Title); title != "" {
			b.WriteString(title)
		}
		if text := w.plainText(content); text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}

		if b.Len() > 0 {
			fragments = append(fragments, domain.Fragment{Text: b.String()})
		}
	}

	if len(fragments) == 0 {
		return nil, errors.New("feed has no items with text")
	}

	return fragments, nil
}

func (w *Web) plainText(fragment string) string {
	return normalizeText(html.UnescapeString(w.sanitizer.Sanitize(fragment)))
}

func textFragments(text string) []domain.Fragment {
	if text = normalizeText(text); text == "" {
		return nil
	}

	return []domain.Fragment{{Text: text}}
}

func isFeedMediaType(mediaType string) bool {
	switch mediaType {
	case "application/rss+xml", "application/atom+xml", "application/feed+json",
		"application/xml", "text/xml":
		return true
	default:
		return false
	}
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusPaymentRequired,
		resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("do request: access restricted: %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("do request: too many requests: %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	default:
		return nil
	}
}
