// Package extractor fetches a URL and turns it into ordered text fragments.
package extractor

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"urlsum/internal/domain"
	"urlsum/internal/source"
)

const (
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
	maxBodyBytes   = 16 << 20
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
)

// Extractor fetches the textual content behind a URL.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) ([]domain.Fragment, error)
}

type Registry struct {
	byKind map[source.Kind]Extractor
}

func NewRegistry(generic Extractor, video Extractor) *Registry {
	return &Registry{
		byKind: map[source.Kind]Extractor{
			source.KindGeneric: generic,
			source.KindVideo:   video,
		},
	}
}

func (r *Registry) For(kind source.Kind) (Extractor, error) {
	e, ok := r.byKind[kind]
	if !ok || e == nil {
		return nil, fmt.Errorf("no extractor for source kind %s", kind)
	}

	return e, nil
}

// NewHTTPClient builds the client shared by the extractors. A zero timeout
// keeps the transport defaults.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // Opt-out is configurable.
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)
}

// normalizeText collapses horizontal whitespace and runs of blank lines.
func normalizeText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpaceRe.ReplaceAllString(line, " "))
	}

	joined := strings.Join(lines, "\n")

	return strings.TrimSpace(blankLinesRe.ReplaceAllString(joined, "\n\n"))
}
