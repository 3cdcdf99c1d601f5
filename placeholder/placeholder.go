// Package placeholder reversibly isolates volatile substrings — markup
// tags and printf-style or brace-indexed variables — from translatable
// text, so a translation provider only ever sees fixed sentinel tokens.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

// Sentinel tokens substituted for extracted substrings. Both are chosen
// so that no reasonable translator rewrites them.
const (
	HTMLSentinel = "{{HTML}}"
	VarSentinel  = "{{VAR}}"
)

var (
	// tagPattern matches any angle-bracket-delimited span: <b>, </a>,
	// <a href="%s">, <br/>. Intentionally generic — the codec does not
	// validate markup, it only quarantines it.
	tagPattern = regexp.MustCompile(`<[^>]+>`)

	// varPattern matches printf-style %s/%d and brace-indexed {0}, {1}…
	varPattern = regexp.MustCompile(`%[sd]|\{[0-9]+\}`)
)

// Isolate replaces every markup span and variable token in text with a
// sentinel, left to right. It returns the masked text plus the extracted
// tags and variables in encounter order, ready for Reinsert.
//
// Variables nested inside a markup span are captured with the span, not
// extracted separately, so the span round-trips byte-identical.
func Isolate(text string) (masked string, tags, vars []string) {
	tags = tagPattern.FindAllString(text, -1)

	masked = tagPattern.ReplaceAllString(text, HTMLSentinel)
	vars = varPattern.FindAllString(masked, -1)
	masked = varPattern.ReplaceAllString(masked, VarSentinel)

	return masked, tags, vars
}

// Reinsert restores the extracted substrings into a translated text:
// first every HTML sentinel, then every variable sentinel, each replaced
// one-for-one in encounter order.
//
// The provider may drop or duplicate sentinels; reinsertion is
// best-effort and the returned error reports any count mismatch (tokens
// left over, or sentinels left unresolved). The returned string is
// always usable — the error is a fidelity warning, not a failure.
func Reinsert(text string, tags, vars []string) (string, error) {
	var leftover int

	for _, tag := range tags {
		if !strings.Contains(text, HTMLSentinel) {
			leftover++
			continue
		}
		text = strings.Replace(text, HTMLSentinel, tag, 1)
	}
	for _, v := range vars {
		if !strings.Contains(text, VarSentinel) {
			leftover++
			continue
		}
		text = strings.Replace(text, VarSentinel, v, 1)
	}

	unresolved := strings.Count(text, HTMLSentinel) + strings.Count(text, VarSentinel)
	if leftover > 0 || unresolved > 0 {
		return text, fmt.Errorf("placeholder count mismatch: %d token(s) without a sentinel, %d sentinel(s) without a token", leftover, unresolved)
	}
	return text, nil
}
