package translate

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SegmentSeparator joins the translated pieces of a segmented text.
const SegmentSeparator = ". "

// SplitSentences cuts text at whitespace that follows '.' or '?'. It does not
// cut after abbreviations: a lone letter ("J."), dotted forms ("e.g.") and
// capitalized titles ("Mr."). Empty pieces are dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i, c := range runes {
		if !unicode.IsSpace(c) || i == 0 {
			continue
		}
		if prev := runes[i-1]; prev != '.' && prev != '?' {
			continue
		}
		if runes[i-1] == '.' && isAbbreviation(runes[:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:i])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// isAbbreviation reports whether head, which ends with '.', ends with an
// abbreviation rather than a sentence.
func isAbbreviation(head []rune) bool {
	n := len(head)
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

	// single letter: "J." at the start or after a non-letter
	if n >= 2 && unicode.IsLetter(head[n-2]) && (n == 2 || !isWord(head[n-3])) {
		return true
	}
	// dotted: "e.g." / "i.e."
	if n >= 4 && isWord(head[n-4]) && head[n-3] == '.' && isWord(head[n-2]) {
		return true
	}
	// title: "Mr." / "Dr."
	if n >= 3 && unicode.IsUpper(head[n-3]) && unicode.IsLower(head[n-2]) && (n == 3 || !isWord(head[n-4])) {
		return true
	}
	return false
}

// PackSentences greedily joins consecutive sentences with a space into
// chunks of at most limit characters. A sentence longer than limit is cut at
// its last whitespace before the limit, or at the limit itself.
func PackSentences(sentences []string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, s := range sentences {
		for _, piece := range hardSplit(s, limit) {
			n := utf8.RuneCountInString(piece)
			sep := 0
			if curLen > 0 {
				sep = 1
			}
			if curLen+sep+n > limit {
				flush()
				sep = 0
			}
			if sep == 1 {
				cur.WriteByte(' ')
			}
			cur.WriteString(piece)
			curLen += sep + n
		}
	}
	flush()
	return chunks
}

// hardSplit cuts s into pieces of at most limit characters.
func hardSplit(s string, limit int) []string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return []string{s}
	}
	var out []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// SegmentText returns the ordered chunks an oversized text is sent as.
func SegmentText(text string, limit int) []string {
	return PackSentences(SplitSentences(text), limit)
}

// segment translates an oversized text as one unit of sentence chunks and
// joins the translations with SegmentSeparator. A text without sentences is
// returned unchanged and costs no call.
func (r *run) segment(ctx context.Context, p Provider, text string) (string, error) {
	chunks := SegmentText(text, r.opts.maxTextLength())
	if len(chunks) == 0 {
		return text, nil
	}
	r.stats.segmented.Add(1)
	out, err := r.dispatch(ctx, p, chunks)
	if err != nil {
		return "", err
	}
	return strings.Join(out, SegmentSeparator), nil
}
