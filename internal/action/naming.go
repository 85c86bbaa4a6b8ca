package action

import (
	"regexp"
	"strings"
)

var (
	reWordStart  = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	reLowerUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	reLetterNum  = regexp.MustCompile(`([a-zA-Z])([0-9])`)
)

// Name converts a variant tag to the snake_case name the model sees:
// ClickByTextIth -> click_by_text_ith, MyHTTP -> my_http, MyAction2 -> my_action_2.
func Name(tag string) string {
	s := reWordStart.ReplaceAllString(tag, "${1}_${2}")
	s = reLowerUpper.ReplaceAllString(s, "${1}_${2}")
	s = reLetterNum.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}
