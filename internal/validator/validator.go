// Package validator checks the credential and URL before any network access.
package validator

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"mvdan.cc/xurls/v2"
)

type Result int

const (
	Valid Result = iota
	MissingFields
	MalformedURL
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case MissingFields:
		return "missing_fields"
	case MalformedURL:
		return "malformed_url"
	default:
		return "unknown"
	}
}

var (
	domainRe    = regexp.MustCompile(`(?i)^([a-z0-9\p{L}]([a-z0-9\p{L}_-]{0,61}[a-z0-9\p{L}])?\.)+([a-z\p{L}]{2,63}|xn--[a-z0-9-]{1,59})\.?$`)
	strictURLRe = xurls.Strict()
)

// Validate is a pure function of its inputs.
func Validate(credential string, rawURL string) Result {
	if strings.TrimSpace(credential) == "" || strings.TrimSpace(rawURL) == "" {
		return MissingFields
	}

	if !IsURL(rawURL) {
		return MalformedURL
	}

	return Valid
}

// IsURL reports whether raw is an absolute http(s) URL with a usable host.
// Trailing punctuation and unusual query characters are accepted as long as
// the URL parses.
func IsURL(raw string) bool {
	if strings.IndexFunc(raw, isSpaceOrControl) >= 0 {
		return false
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}

	if !validHost(u.Hostname()) {
		return false
	}

	return strictURLRe.FindString(raw) != ""
}

func isSpaceOrControl(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

func validHost(host string) bool {
	switch {
	case host == "":
		return false
	case strings.EqualFold(host, "localhost"):
		return true
	case net.ParseIP(host) != nil:
		return true
	default:
		return domainRe.MatchString(host)
	}
}
