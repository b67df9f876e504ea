// Package markup turns AI-authored text into a small, safe rich-text form:
// bold, italic and line breaks, with every other markup character escaped.
package markup

import (
	"html"
	"regexp"
	"strings"
)

// Preambles are removed at the start of the text, each at most once, in order.
var preambles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Okay,?\s*here'?s?\s+a\s+bio\s+for\s+the\s+crypto\s+wallet.*?:\s*`),
	regexp.MustCompile(`(?i)^Here'?s?\s+a\s+.*?:\s*`),
	regexp.MustCompile(`(?i)^Based\s+on\s+the\s+provided\s+information.*?:\s*`),
}

var (
	sectionLabel = regexp.MustCompile(`(?im)^\d+\.\s*(?:Tagline|Story|Bio):\s*`)
	metadataLine = regexp.MustCompile(`(?im)^(?:Address|Total Transactions|Portfolio Age|Badges|Timeline|Bio):\s*.*?\n`)
	strongSpan   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emphasisSpan = regexp.MustCompile(`\*(.+?)\*`)
)

// Marker runes from the private use area stand in for tags while parsing.
const (
	strongOpen  = '\uE000'
	strongClose = '\uE001'
	emOpen      = '\uE002'
	emClose     = '\uE003'
)

// Segment is a run of text with uniform style, or a line break.
type Segment struct {
	Text     string
	Strong   bool
	Emphasis bool
	Break    bool
}

// Fragment is normalized text ready for display.
type Fragment struct {
	Segments []Segment
}

// StripPreamble removes generation boilerplate: the leading preambles, the
// numbered section labels and the metadata echo lines, then trims.
func StripPreamble(raw string) string {
	s := raw
	for _, re := range preambles {
		s = re.ReplaceAllString(s, "")
	}
	s = sectionLabel.ReplaceAllString(s, "")
	s = metadataLine.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Normalize strips boilerplate from raw and parses the **bold**, *italic* and
// newline conventions. Bold is matched before italic.
func Normalize(raw string) Fragment {
	s := strings.Map(func(r rune) rune {
		if r >= strongOpen && r <= emClose {
			return -1
		}
		return r
	}, raw)
	s = StripPreamble(s)
	s = strongSpan.ReplaceAllString(s, string(strongOpen)+"$1"+string(strongClose))
	s = emphasisSpan.ReplaceAllString(s, string(emOpen)+"$1"+string(emClose))
	return parse(s)
}

func parse(s string) Fragment {
	var f Fragment
	var strong, em bool
	var text strings.Builder

	flush := func() {
		if text.Len() == 0 {
			return
		}
		f.Segments = append(f.Segments, Segment{Text: text.String(), Strong: strong, Emphasis: em})
		text.Reset()
	}

	for _, r := range s {
		switch r {
		case strongOpen, strongClose:
			flush()
			strong = r == strongOpen
		case emOpen, emClose:
			flush()
			em = r == emOpen
		case '\n':
			flush()
			f.Segments = append(f.Segments, Segment{Break: true})
		default:
			text.WriteRune(r)
		}
	}
	flush()
	return f
}

func (f Fragment) Empty() bool { return len(f.Segments) == 0 }

// HTML renders the fragment with all text escaped. Tags are always balanced;
// strong is the outer element when both styles apply.
func (f Fragment) HTML() string {
	var b strings.Builder
	var strong, em bool

	closeEm := func() {
		if em {
			b.WriteString("</em>")
			em = false
		}
	}
	closeStrong := func() {
		closeEm()
		if strong {
			b.WriteString("</strong>")
			strong = false
		}
	}

	for _, seg := range f.Segments {
		if seg.Break {
			closeStrong()
			b.WriteString("<br />")
			continue
		}
		if strong && !seg.Strong {
			closeStrong()
		}
		if em && !seg.Emphasis {
			closeEm()
		}
		if !strong && seg.Strong {
			closeEm()
			b.WriteString(`<strong class="font-semibold">`)
			strong = true
		}
		if !em && seg.Emphasis {
			b.WriteString(`<em class="italic">`)
			em = true
		}
		b.WriteString(html.EscapeString(seg.Text))
	}
	closeStrong()
	return b.String()
}

// Plain returns the text without styling, breaks as newlines.
func (f Fragment) Plain() string {
	var b strings.Builder
	for _, seg := range f.Segments {
		if seg.Break {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
