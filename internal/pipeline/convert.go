package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// ErrImageCount indicates a RenderFunc returned the wrong number of images.
var ErrImageCount = errors.New("image count does not match block count")

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
%s</style>
</head>
<body>
%s
</body>
</html>
`

// baseStyle is used when no stylesheet is given.
const baseStyle = `p.score img { max-width: 100%; }
p.score-error { color: #b00020; font-family: monospace; }
`

// DefaultCodeStyle is the chroma style for highlighted code blocks.
const DefaultCodeStyle = "github"

// Block is one fenced score found in a document.
type Block struct {
	Notation string // info string of the fence
	Source   string // fence content, unmodified
	Line     int    // 1-based line of the opening fence
}

// Image is the outcome of rendering one Block.
type Image struct {
	Src string // image reference written into the document
	Err error
}

// RenderFunc renders blocks and returns exactly one Image per block, in order.
type RenderFunc func(ctx context.Context, blocks []Block) []Image

// Document is a converted document.
type Document struct {
	HTML     string
	Blocks   []Block
	Rendered int
	Failed   int
}

// DocConverter converts Markdown documents with embedded scores.
type DocConverter struct {
	md        goldmark.Markdown
	known     func(notation string) bool
	style     string
	codeStyle string
	css       string
}

// Option configures a DocConverter.
type Option func(*DocConverter)

// WithStyle sets the page stylesheet.
func WithStyle(css string) Option {
	return func(c *DocConverter) { c.style = css }
}

// WithCodeStyle selects the chroma style of code blocks. Unknown names fall
// back to chroma's default style.
func WithCodeStyle(name string) Option {
	return func(c *DocConverter) { c.codeStyle = name }
}

// NewDocConverter creates a converter treating fences whose info string
// satisfies known as scores.
func NewDocConverter(known func(notation string) bool, opts ...Option) *DocConverter {
	c := &DocConverter{known: known, style: baseStyle, codeStyle: DefaultCodeStyle}
	for _, opt := range opts {
		opt(c)
	}

	// Code blocks carry classes; their colors come from the stylesheet.
	var css strings.Builder
	css.WriteString(c.style)
	if !strings.HasSuffix(c.style, "\n") {
		css.WriteByte('\n')
	}
	_ = chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, styles.Get(c.codeStyle))
	c.css = css.String()

	c.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
			&scoreExtension{},
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()),
	)
	return c
}

type found struct {
	node  *ast.FencedCodeBlock
	block Block
}

func (c *DocConverter) scan(doc ast.Node, source []byte) []found {
	var out []found
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(string(fence.Language(source)))
		if lang == "" || !c.known(lang) {
			return ast.WalkSkipChildren, nil
		}
		out = append(out, found{node: fence, block: Block{
			Notation: lang,
			Source:   fenceContent(fence, source),
			Line:     fenceLine(fence, source),
		}})
		return ast.WalkSkipChildren, nil
	})
	return out
}

func fenceContent(n *ast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// fenceLine returns the line of the opening fence: the one before the
// first content line, or the info string's line for an empty fence.
func fenceLine(n *ast.FencedCodeBlock, source []byte) int {
	if n.Info != nil {
		return bytes.Count(source[:n.Info.Segment.Start], []byte("\n")) + 1
	}
	if n.Lines().Len() > 0 {
		return bytes.Count(source[:n.Lines().At(0).Start], []byte("\n"))
	}
	return 0
}

// Scan returns the score blocks of a document without rendering them.
func (c *DocConverter) Scan(source []byte) []Block {
	doc := c.md.Parser().Parse(text.NewReader(source))
	var blocks []Block
	for _, f := range c.scan(doc, source) {
		blocks = append(blocks, f.block)
	}
	return blocks
}

// Convert renders every score block through render and returns the HTML
// document. title is escaped into the <title> element.
func (c *DocConverter) Convert(ctx context.Context, source []byte, title string, render RenderFunc) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := c.md.Parser().Parse(text.NewReader(source))
	fences := c.scan(doc, source)
	out := &Document{Blocks: make([]Block, len(fences))}
	for i, f := range fences {
		out.Blocks[i] = f.block
	}

	if len(fences) > 0 {
		images := render(ctx, out.Blocks)
		if len(images) != len(fences) {
			return nil, fmt.Errorf("%w: %d images for %d blocks", ErrImageCount, len(images), len(fences))
		}
		for i, f := range fences {
			parent := f.node.Parent()
			if images[i].Err != nil {
				out.Failed++
				score := &Score{Notation: f.block.Notation, Err: fmt.Sprintf("line %d: %v", f.block.Line, images[i].Err)}
				parent.InsertAfter(parent, f.node, score)
				continue
			}
			out.Rendered++
			score := &Score{Notation: f.block.Notation, Src: images[i].Src, Alt: f.block.Notation + " score"}
			parent.ReplaceChild(parent, f.node, score)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	out.HTML = fmt.Sprintf(htmlTemplate, html.EscapeString(title), c.css, buf.String())
	return out, nil
}
