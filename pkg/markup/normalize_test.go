package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_CleanInputOnlyConvertsNewlines(t *testing.T) {
	in := "Line one\nLine two\n\nLine four"
	f := Normalize(in)
	assert.Equal(t, "Line one<br />Line two<br /><br />Line four", f.HTML())
	assert.Equal(t, in, f.Plain())
}

func TestNormalize_BoldItalicBreak(t *testing.T) {
	f := Normalize("**Bold** and *italic*\nLine2")
	assert.Equal(t,
		`<strong class="font-semibold">Bold</strong> and <em class="italic">italic</em><br />Line2`,
		f.HTML())
	assert.Equal(t, "Bold and italic\nLine2", f.Plain())
	assert.Equal(t, []Segment{
		{Text: "Bold", Strong: true},
		{Text: " and "},
		{Text: "italic", Emphasis: true},
		{Break: true},
		{Text: "Line2"},
	}, f.Segments)
}

func TestStripPreamble(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"okay bio preamble", "Okay, here's a bio for the crypto wallet 0xabc:\n\nThe whale", "The whale"},
		{"okay without comma", "okay heres a bio for the crypto wallet: Degen", "Degen"},
		{"here's a", "Here's a short profile:\nText", "Text"},
		{"based on", "Based on the provided information, this is the story: Story", "Story"},
		{"only at start", "Intro. Here's a note: kept", "Intro. Here's a note: kept"},
		{"section labels", "1. Tagline: Diamond hands\n2. Story: Long story\n3. Bio: Short", "Diamond hands\nLong story\nShort"},
		{"metadata lines", "Address: 0xabc\nTotal Transactions: 42\nPortfolio Age: 3 months\nThe real bio", "The real bio"},
		{"metadata in the middle", "Intro\nBadges: Whale, OG\nOutro", "Intro\nOutro"},
		{"trim", "  \n spaced \n ", "spaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripPreamble(tt.in))
		})
	}
}

func TestNormalize_EscapesMarkup(t *testing.T) {
	f := Normalize(`<script>alert("x")</script> & **<b>**`)
	assert.Equal(t,
		`&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; <strong class="font-semibold">&lt;b&gt;</strong>`,
		f.HTML())
}

func TestNormalize_PreambleWithApostropheStillStripped(t *testing.T) {
	f := Normalize("Here's a bio for you: It's *fine*")
	assert.Equal(t, `It&#39;s <em class="italic">fine</em>`, f.HTML())
}

func TestNormalize_Nesting(t *testing.T) {
	assert.Equal(t,
		`<strong class="font-semibold">a <em class="italic">b</em> c</strong>`,
		Normalize("**a *b* c**").HTML())

	// overlapping spans still produce balanced tags
	assert.Equal(t,
		`<em class="italic">a </em><strong class="font-semibold"><em class="italic">b</em> c</strong>`,
		Normalize("*a **b* c**").HTML())
}

func TestNormalize_UnmatchedMarkersStayLiteral(t *testing.T) {
	assert.Equal(t, "**bold", Normalize("**bold").HTML())
	assert.Equal(t, "a * b", Normalize("a * b").HTML())
	// spans do not cross lines
	assert.Equal(t, "*a<br />b*", Normalize("*a\nb*").HTML())
}

func TestNormalize_StripsMarkerRunes(t *testing.T) {
	f := Normalize("a\uE000b\uE003c")
	assert.Equal(t, "abc", f.HTML())
	assert.Equal(t, []Segment{{Text: "abc"}}, f.Segments)
}

func TestNormalize_Empty(t *testing.T) {
	assert.True(t, Normalize("").Empty())
	assert.True(t, Normalize("Address: 0xabc\n").Empty())
	assert.Equal(t, "", Normalize("   ").HTML())
}
