package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/mdpages/internal/docs"
	"git.home.luguber.info/inful/mdpages/internal/foundation/errors"
)

var fixedNow = func() time.Time { return time.Date(2025, time.March, 5, 9, 30, 0, 0, time.UTC) }

func newTestConverter(t *testing.T) (*Converter, docs.Layout) {
	t.Helper()
	base := t.TempDir()
	layout := docs.Layout{
		ContentRoot: filepath.Join(base, "content"),
		OutputRoot:  filepath.Join(base, "docs"),
		StateRoot:   filepath.Join(base, "memory"),
	}
	return NewConverter(layout).WithClock(fixedNow), layout
}

func doc(layout docs.Layout, rel string) docs.Document {
	return docs.Document{Rel: rel, Path: layout.SourcePath(rel)}
}

// findAll returns every element with the given tag in document order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func parse(t *testing.T, page Page) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(string(page.HTML)))
	require.NoError(t, err)
	return root
}

func TestRenderUsesH1AsTitle(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "guides/setup.md"), []byte("# Install Guide\n\nSteps.\n"))
	require.NoError(t, err)

	assert.Equal(t, "Install Guide", page.Title)
	assert.Equal(t, "guides/setup.md", page.Rel)
	assert.Equal(t, filepath.Join(layout.OutputRoot, "guides", "setup.html"), page.OutputPath)

	root := parse(t, page)
	titles := findAll(root, "title")
	require.Len(t, titles, 1)
	assert.Equal(t, "Install Guide", text(titles[0]))
}

func TestRenderFallsBackToStem(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "getting-started.md"), []byte("No heading here.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Getting Started", page.Title)
}

func TestRenderFooterDateFromClock(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "a.md"), []byte("hi\n"))
	require.NoError(t, err)
	assert.Contains(t, string(page.HTML), "Last updated: March 05, 2025")
}

func TestRenderHardWraps(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "a.md"), []byte("line one\nline two\n"))
	require.NoError(t, err)

	ps := findAll(parse(t, page), "p")
	require.Len(t, ps, 1)
	assert.Len(t, findAll(ps[0], "br"), 1)
}

func TestRenderTables(t *testing.T) {
	c, layout := newTestConverter(t)

	src := "| Name | Value |\n|------|-------|\n| a    | 1     |\n"
	page, err := c.Render(doc(layout, "a.md"), []byte(src))
	require.NoError(t, err)

	root := parse(t, page)
	require.Len(t, findAll(root, "table"), 1)
	assert.Len(t, findAll(root, "th"), 2)
	assert.Len(t, findAll(root, "td"), 2)
}

func TestRenderFencedCode(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "a.md"), []byte("```go\nfmt.Println(\"<x>\")\n```\n"))
	require.NoError(t, err)

	codes := findAll(parse(t, page), "code")
	require.Len(t, codes, 1)
	assert.Equal(t, "language-go", attr(codes[0], "class"))
	assert.Equal(t, "fmt.Println(\"<x>\")\n", text(codes[0]))
}

func TestRenderTableOfContents(t *testing.T) {
	c, layout := newTestConverter(t)

	src := "# Guide\n\n[TOC]\n\n## Install\n\n### Linux\n\n## Usage\n"
	page, err := c.Render(doc(layout, "guide.md"), []byte(src))
	require.NoError(t, err)

	root := parse(t, page)
	var toc *html.Node
	for _, div := range findAll(root, "div") {
		if attr(div, "class") == "toc" {
			toc = div
		}
	}
	require.NotNil(t, toc, "marker replaced by toc block")
	assert.NotContains(t, string(page.HTML), "[TOC]")

	var hrefs []string
	for _, a := range findAll(toc, "a") {
		hrefs = append(hrefs, attr(a, "href"))
	}
	assert.Equal(t, []string{"#guide", "#install", "#linux", "#usage"}, hrefs)

	// Guide > (Install > Linux), Usage
	assert.Len(t, findAll(toc, "ul"), 3)

	var ids []string
	for _, tag := range []string{"h1", "h2", "h3"} {
		for _, h := range findAll(root, tag) {
			ids = append(ids, attr(h, "id"))
		}
	}
	assert.ElementsMatch(t, []string{"guide", "install", "usage", "linux"}, ids)
}

func TestRenderRawHTMLPassthrough(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "a.md"), []byte("<span class=\"note\">kept</span>\n"))
	require.NoError(t, err)
	assert.Contains(t, string(page.HTML), `<span class="note">kept</span>`)
}

func TestRenderRejectsInvalidUTF8(t *testing.T) {
	c, layout := newTestConverter(t)

	_, err := c.Render(doc(layout, "bad.md"), []byte{'#', ' ', 0xff, 0xfe})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryDecode))
}

func TestRenderStripsByteOrderMark(t *testing.T) {
	c, layout := newTestConverter(t)

	page, err := c.Render(doc(layout, "a.md"), append([]byte{0xEF, 0xBB, 0xBF}, "# Title\n"...))
	require.NoError(t, err)
	assert.Equal(t, "Title", page.Title)
}

func TestRenderIsDeterministic(t *testing.T) {
	c, layout := newTestConverter(t)
	src := []byte("# A\n\n[TOC]\n\n## B\n")

	first, err := c.Render(doc(layout, "a.md"), src)
	require.NoError(t, err)
	second, err := c.Render(doc(layout, "a.md"), src)
	require.NoError(t, err)
	assert.Equal(t, first.HTML, second.HTML)
}

func TestConvertReadsFromDisk(t *testing.T) {
	c, layout := newTestConverter(t)
	require.NoError(t, os.MkdirAll(layout.ContentRoot, 0o750))
	require.NoError(t, os.WriteFile(layout.SourcePath("page.md"), []byte("# Disk\n"), 0o600))

	page, err := c.Convert(doc(layout, "page.md"))
	require.NoError(t, err)
	assert.Equal(t, "Disk", page.Title)

	_, err = c.Convert(doc(layout, "missing.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryDecode))
}
