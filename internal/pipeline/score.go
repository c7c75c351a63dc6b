package pipeline

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// KindScore is the NodeKind of a rendered or failed score block.
var KindScore = ast.NewNodeKind("Score")

// Score is the AST node standing for one fenced score.
// A Score with Err set follows the original code block instead of
// replacing it.
type Score struct {
	ast.BaseBlock
	Notation string
	Src      string
	Alt      string
	Err      string
}

// Kind implements ast.Node.
func (n *Score) Kind() ast.NodeKind {
	return KindScore
}

// Dump implements ast.Node.
func (n *Score) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Notation": n.Notation,
		"Src":      n.Src,
		"Err":      n.Err,
	}, nil)
}

type scoreHTMLRenderer struct{}

func (r *scoreHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindScore, r.renderScore)
}

func (r *scoreHTMLRenderer) renderScore(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Score)
	if n.Err != "" {
		_, _ = w.WriteString(`<p class="score-error">`)
		_, _ = w.Write(util.EscapeHTML([]byte(n.Err)))
		_, _ = w.WriteString("</p>\n")
		return ast.WalkSkipChildren, nil
	}

	_, _ = w.WriteString(`<p class="score score-`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Notation)))
	_, _ = w.WriteString(`"><img src="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape([]byte(n.Src), false)))
	_, _ = w.WriteString(`" alt="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Alt)))
	_, _ = w.WriteString("\" /></p>\n")
	return ast.WalkSkipChildren, nil
}

// scoreExtension registers the Score renderer.
type scoreExtension struct{}

func (e *scoreExtension) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&scoreHTMLRenderer{}, 500),
	))
}
