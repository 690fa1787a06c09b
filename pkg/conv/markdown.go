package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions  = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags   = html.CommonFlags
	stripPolicy = bluemonday.StrictPolicy()
)

type Kind string

const (
	KindText    Kind = "text"
	KindHeading Kind = "heading"
	KindList    Kind = "list"
	KindTable   Kind = "table"
	KindCode    Kind = "code"
)

// kindRank orders kinds so the most structured block in a message wins.
var kindRank = map[Kind]int{
	KindText:    0,
	KindHeading: 1,
	KindList:    2,
	KindTable:   3,
	KindCode:    4,
}

// PlainText renders markdown and strips every tag, leaving readable text on
// a single line. Embedded raw HTML (scripts included) never leaks through.
func PlainText(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	rendered := markdown.Render(p.Parse([]byte(md)), renderer)

	stripped := stripPolicy.SanitizeBytes(rendered)

	text, err := html2text.FromString(string(stripped), html2text.Options{OmitLinks: true})
	if err != nil {
		text = string(stripped)
	}

	return strings.Join(strings.Fields(text), " ")
}

// ContentKind tags a message by the most structured markdown block it contains.
func ContentKind(md string) Kind {
	if strings.TrimSpace(md) == "" {
		return KindText
	}

	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	kind := KindText
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		var k Kind
		switch node.(type) {
		case *ast.CodeBlock:
			k = KindCode
		case *ast.Table:
			k = KindTable
		case *ast.List:
			k = KindList
		case *ast.Heading:
			k = KindHeading
		default:
			return ast.GoToNext
		}

		if kindRank[k] > kindRank[kind] {
			kind = k
		}
		return ast.GoToNext
	})

	return kind
}
