// Package textutil holds small text transformations shared by the transcript code.
package textutil

import "regexp"

var markdownRules = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.*?)__`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`_(.*?)_`), "$1"},
	{regexp.MustCompile(`~~(.*?)~~`), "$1"},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*\*[ \t]`), ""},
}

// StripMarkdown removes bold, italic, strikethrough, inline code and
// asterisk bullets. Strong emphasis is handled before single emphasis.
func StripMarkdown(text string) string {
	if text == "" {
		return ""
	}
	for _, rule := range markdownRules {
		text = rule.pattern.ReplaceAllString(text, rule.repl)
	}
	return text
}
