// Package normalize cleans raw chat text and screens out conversational
// filler before messages enter the pipeline.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	punctPattern = regexp.MustCompile(`[^\w\s]`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// lowValuePhrases are short greetings and acknowledgements that carry no
// classifiable content. Matching is case-insensitive after punctuation
// stripping; single tokens and phrases up to three words are checked.
var lowValuePhrases = map[string]struct{}{
	"gm": {}, "gn": {}, "gmn": {}, "hai": {}, "halo": {}, "hello": {}, "hi": {},
	"ok": {}, "oke": {}, "yes": {}, "no": {}, "ya": {}, "iya": {},
	"enggak": {}, "nggak": {}, "hehe": {}, "haha": {}, "wkwk": {},
	"hmm": {}, "hm": {}, "mantap": {}, "sip": {},
	"pagi": {}, "siang": {}, "sore": {}, "malam": {},
	"good morning": {}, "good night": {}, "good evening": {},
	"selamat pagi": {}, "selamat siang": {}, "selamat sore": {}, "selamat malam": {},
}

// IsLowValue reports whether text is empty or near-empty conversational
// filler. Rejected messages are excluded from the pipeline but still count
// toward a source's pulled total.
func IsLowValue(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}

	cleaned := punctPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "")
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return true
	}

	if len(words) == 1 {
		_, ok := lowValuePhrases[words[0]]
		return ok
	}

	if len(words) <= 3 {
		_, ok := lowValuePhrases[strings.Join(words, " ")]
		return ok
	}

	return false
}

// Clean normalizes raw message text: markup and URLs are stripped, emoji
// and control runes removed, encoding artifacts repaired, and whitespace
// collapsed to single spaces. The result may be empty.
func Clean(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = stripMarkup(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = stripEmoji(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// stripMarkup drops HTML tags that chat platforms embed in formatted
// messages and resolves entities like &amp; into plain runes.
func stripMarkup(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}

	tokenizer := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Tags separate words; keep a boundary so "a<br>b" stays two words.
			b.WriteByte(' ')
		}
	}
}

func stripEmoji(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isEmoji(r) || isInvisible(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows and stars used as emoji
		return true
	}
	return false
}

func isInvisible(r rune) bool {
	switch r {
	case 0xFE0F, 0xFE0E, 0x200D, 0x200B, 0x200C, 0xFEFF:
		return true
	}
	return false
}
