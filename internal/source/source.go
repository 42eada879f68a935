// Package source decides which extraction strategy serves a URL.
package source

import "strings"

type Kind int

const (
	KindGeneric Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	default:
		return "generic"
	}
}

// Marker routes every URL containing Substring to Kind.
type Marker struct {
	Substring string
	Kind      Kind
}

//nolint:gochecknoglobals // Routing table meant to be immutable.
var DefaultMarkers = []Marker{
	{Substring: "youtube.com", Kind: KindVideo},
	{Substring: "youtu.be", Kind: KindVideo},
}

type Router struct {
	markers []Marker
}

func NewRouter(markers []Marker) *Router {
	return &Router{markers: markers}
}

// Classify returns the first matching marker's kind, KindGeneric otherwise.
func (r *Router) Classify(rawURL string) Kind {
	for _, m := range r.markers {
		if m.Substring != "" && strings.Contains(rawURL, m.Substring) {
			return m.Kind
		}
	}

	return KindGeneric
}

// Classify uses DefaultMarkers.
func Classify(rawURL string) Kind {
	return NewRouter(DefaultMarkers).Classify(rawURL)
}
