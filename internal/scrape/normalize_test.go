package scrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustParse(t *testing.T, markup string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	return root
}

func TestVisibleText_DropsScriptContent(t *testing.T) {
	t.Parallel()

	root := mustParse(t, `<script>ignored</script><p>Hello world</p>`)
	require.Equal(t, "Hello world", VisibleText(root))
}

func TestVisibleText_DropsNonVisibleAncestors(t *testing.T) {
	t.Parallel()

	markup := `<html><head>
<title>Page title</title>
<style>body { color: red }</style>
<meta name="description" content="meta text">
</head><body>
<!-- a structural comment -->
<div>First</div>
<p>Second <b>bold</b></p>
</body></html>`

	require.Equal(t, "First Second bold", VisibleText(mustParse(t, markup)))
}

func TestVisibleText_JoinsFragmentsWithSingleSpaces(t *testing.T) {
	t.Parallel()

	markup := "<div>\n   one\n</div><div>\t two </div><div></div><div>three</div>"
	require.Equal(t, "one two three", VisibleText(mustParse(t, markup)))
}

func TestNormalizeText_FoldsToASCII(t *testing.T) {
	t.Parallel()

	require.Equal(t, "resume engineer", NormalizeText("  résumé engineer "))
	require.Equal(t, "salary: 50k", NormalizeText("salary: 50k€"))
	require.Equal(t, "", NormalizeText("   \t\n "))
	require.Equal(t, "", NormalizeText("日本語"))
}
