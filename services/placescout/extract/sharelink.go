package extract

import (
	"regexp"

	"golang.org/x/net/html"
)

var shareLinkRegex = regexp.MustCompile(`https://[^\s",]+`)

// DecodeShareLink recovers the first https url from an html-encoded
// attribute payload, it returns "" when there is none.
func DecodeShareLink(payload string) string {
	decoded := html.UnescapeString(payload)
	return shareLinkRegex.FindString(decoded)
}
