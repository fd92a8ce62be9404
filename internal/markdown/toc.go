package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// TOCMarker is the paragraph text replaced by the table of contents.
const TOCMarker = "[TOC]"

// KindTOC is the node kind of a rendered table of contents.
var KindTOC = ast.NewNodeKind("TOC")

type tocEntry struct {
	level    int
	id       []byte
	text     []byte
	children []*tocEntry
}

// tocNode replaces a marker paragraph and carries the nested heading list.
type tocNode struct {
	ast.BaseBlock
	entries []*tocEntry
}

func (n *tocNode) Kind() ast.NodeKind { return KindTOC }

func (n *tocNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// tocExtension swaps every "[TOC]" paragraph for a nested list of the
// document's headings linking to their generated ids.
type tocExtension struct{}

// TOC is the goldmark extender for the table of contents marker.
var TOC goldmark.Extender = &tocExtension{}

func (e *tocExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&tocTransformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&tocRenderer{}, 500),
	))
}

type tocTransformer struct{}

func (t *tocTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var markers []*ast.Paragraph
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			headings = append(headings, node)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if isMarker(node, source) {
				markers = append(markers, node)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if len(markers) == 0 {
		return
	}

	entries := nestHeadings(headings, source)
	for _, p := range markers {
		parent := p.Parent()
		if parent == nil {
			continue
		}
		parent.ReplaceChild(parent, p, &tocNode{entries: entries})
	}
}

func isMarker(p *ast.Paragraph, source []byte) bool {
	lines := p.Lines()
	if lines.Len() != 1 {
		return false
	}
	seg := lines.At(0)
	return string(bytes.TrimSpace(seg.Value(source))) == TOCMarker
}

// nestHeadings turns a flat heading sequence into a tree where each heading
// becomes a child of the closest preceding heading with a lower level.
func nestHeadings(headings []*ast.Heading, source []byte) []*tocEntry {
	var roots, stack []*tocEntry
	for _, h := range headings {
		e := &tocEntry{level: h.Level, text: plainText(h, source)}
		if v, ok := h.AttributeString("id"); ok {
			if id, isBytes := v.([]byte); isBytes {
				e.id = id
			}
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= e.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, e)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, e)
		}
		stack = append(stack, e)
	}
	return roots
}

func plainText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		default:
			buf.Write(plainText(c, source))
		}
	}
	return buf.Bytes()
}

type tocRenderer struct{}

func (r *tocRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindTOC, r.render)
}

func (r *tocRenderer) render(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	node, ok := n.(*tocNode)
	if !ok {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<div class=\"toc\">\n")
	writeEntries(w, node.entries)
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

func writeEntries(w util.BufWriter, entries []*tocEntry) {
	if len(entries) == 0 {
		return
	}
	_, _ = w.WriteString("<ul>\n")
	for _, e := range entries {
		_, _ = w.WriteString("<li><a href=\"#")
		_, _ = w.Write(util.EscapeHTML(e.id))
		_, _ = w.WriteString("\">")
		_, _ = w.Write(util.EscapeHTML(e.text))
		_, _ = w.WriteString("</a>")
		if len(e.children) > 0 {
			_, _ = w.WriteString("\n")
			writeEntries(w, e.children)
		}
		_, _ = w.WriteString("</li>\n")
	}
	_, _ = w.WriteString("</ul>\n")
}
