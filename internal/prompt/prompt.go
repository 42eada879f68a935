// Package prompt fills the summarization template with extracted text.
package prompt

import (
	"fmt"
	"strings"

	"urlsum/internal/domain"
)

const (
	Placeholder = "{documents}"

	// DefaultTemplate asks for a fixed 300-word summary.
	DefaultTemplate = "\nProvide a summary of the following content in 300 words:\nContent:" + Placeholder + "\n"

	fragmentSeparator = "\n\n"
)

type Composer struct {
	template string
}

func New(template string) (*Composer, error) {
	if n := strings.Count(template, Placeholder); n != 1 {
		return nil, fmt.Errorf("template must contain exactly one %s placeholder (found = %d)", Placeholder, n)
	}

	return &Composer{template: template}, nil
}

// Default panics only if DefaultTemplate is broken.
func Default() *Composer {
	c, err := New(DefaultTemplate)
	if err != nil {
		panic(err)
	}

	return c
}

// Compose is deterministic: the same fragments give the same bytes.
func (c *Composer) Compose(fragments []domain.Fragment) string {
	documents := strings.Join(domain.Texts(fragments), fragmentSeparator)

	return strings.Replace(c.template, Placeholder, documents, 1)
}
