package scrape

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nonVisibleTags lists the structural ancestors whose text never renders:
// style/script/head/title/meta plus the document wrapper itself.
var nonVisibleTags = map[string]struct{}{
	"style":  {},
	"script": {},
	"head":   {},
	"title":  {},
	"meta":   {},
	"html":   {},
}

// VisibleText walks every text node under root, drops nodes whose nearest
// enclosing tag is non-visible as well as comments, strips each surviving
// fragment, and joins them with single spaces. External detail pages share
// no DOM, so this is the generic extraction strategy for them.
func VisibleText(root *html.Node) string {
	var fragments []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.TextNode:
			if visibleAncestor(n) {
				if frag := strings.TrimSpace(n.Data); frag != "" {
					fragments = append(fragments, frag)
				}
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return strings.Join(fragments, " ")
}

func visibleAncestor(n *html.Node) bool {
	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return false
	}
	_, hidden := nonVisibleTags[parent.Data]
	return !hidden
}

// asciiFold decomposes accented characters, strips the combining marks, and
// drops every remaining rune outside ASCII. The policy is deliberately
// lossy: truncating exotic characters beats failing the whole record.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// NormalizeText trims s and reduces it to a transmission-safe ASCII string.
func NormalizeText(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		// The chain never errors on valid UTF-8; malformed input falls
		// back to a byte-level strip.
		var b strings.Builder
		for _, r := range s {
			if r <= unicode.MaxASCII {
				b.WriteRune(r)
			}
		}
		folded = b.String()
	}
	return strings.TrimSpace(folded)
}
