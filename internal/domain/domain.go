package domain

// Fragment is one unit of extracted text, e.g. a page or a transcript.
type Fragment struct {
	Text string
}

func Texts(fragments []Fragment) []string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.Text)
	}

	return texts
}
