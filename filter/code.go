// Package filter holds the record validators that run around translation:
// a heuristic that spots programming-language snippets before translation,
// and a scanner for the fail marker after it.
package filter

import (
	"regexp"
	"strings"

	"github.com/minios-linux/datrans/record"
)

// DefaultCodeThreshold is the number of code-like tokens at which a text is
// treated as code. Lists use twice this value.
const DefaultCodeThreshold = 8

// codeTokens are matched case-insensitively on word boundaries. Repeated
// tokens are intentional: every listed copy adds its matches to the score.
var codeTokens = []string{
	";", "{", "}", "function", "class", "var", "int", "void", "public",
	"import", "for", "while", "elif", "switch", "case", "break",
	"def", "return", "const", "let", "async", "await", "public", "private",
	"protected", "extends", "implements", "new", "try", "catch", "throw",
	"require", "import", "module.exports", "console.log", "printf", "#include",
	"namespace", "using", "struct", "typedef", "enum", "interface", "const",
	"final", "abstract", "static", "main", "int", "float", "double", "bool",
	"true", "false", "NULL", "nil", "void", "var", "let", "const", "val",
	"try", "catch", "finally", "raise", "lambda", "self", "super",
	"instanceof", "enum", "switch", "case", "break", "default", "console", "python",
	"csharp", "c", "js", "javascript", "java", "pytorch", "php", "asm", "//", "#", "writeline", "readline", "```",
	"json", "html", "css", "lxml", "xml", "<", ">", "<html>", "<body>", "<li>", "</html>", "</body>", "</ul>", "<ul>", "</li>",
	"[", "]", "<text>", "</", "<source>", "</source>", "</text>", "sql", "select", "from", "table", "union", "group",
	"string", "()", "Hello, world!", "C# code", "python code", "import re", "object", "ABC", "Ruby", "regex", "println",
}

var codePatterns = compileTokens(codeTokens)

func compileTokens(tokens []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToLower(tok))+`\b`))
	}
	return out
}

// CodeScore counts code-like tokens in text and returns the matches.
func CodeScore(text string) (int, []string) {
	lower := strings.ToLower(text)
	var found []string
	for _, re := range codePatterns {
		found = append(found, re.FindAllString(lower, -1)...)
	}
	return len(found), found
}

// Detector decides whether texts look like code.
type Detector struct {
	// Threshold is the score at which a single text is code (0 = default).
	Threshold int
}

func (d Detector) threshold() int {
	if d.Threshold > 0 {
		return d.Threshold
	}
	return DefaultCodeThreshold
}

// Check scores one text.
func (d Detector) Check(text string) (bool, int, []string) {
	score, found := CodeScore(text)
	return score >= d.threshold(), score, found
}

// CheckList scores a list of texts together against twice the threshold.
func (d Detector) CheckList(texts []string) (bool, int, []string) {
	var score int
	var found []string
	for _, t := range texts {
		s, f := CodeScore(t)
		score += s
		found = append(found, f...)
	}
	return score >= 2*d.threshold(), score, found
}

// CheckValue scores a record value; non-text values never count as code.
func (d Detector) CheckValue(v record.Value) (bool, int, []string) {
	switch v.Kind {
	case record.KindText:
		return d.Check(v.Text)
	case record.KindList:
		return d.CheckList(v.List)
	default:
		return false, 0, nil
	}
}

// IsLikelyCode reports whether text looks like code with the default threshold.
func IsLikelyCode(text string) (bool, int, []string) {
	return Detector{}.Check(text)
}
