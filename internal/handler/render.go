package handler

import (
	"bytes"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/fileblog/internal/model"
)

var (
	// Titles are plain text: every tag is stripped.
	titlePolicy = bluemonday.StrictPolicy()
	// Content is user markdown: the usual user-generated-content tags survive.
	contentPolicy = bluemonday.UGCPolicy()
)

// mdToHTML renders markdown with the common extensions. The result is NOT
// safe to serve until it has gone through contentPolicy.
func mdToHTML(md string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})

	return markdown.Render(doc, renderer)
}

// renderPost turns a post into a sanitized HTML fragment.
func renderPost(p *model.Post) []byte {
	var buf bytes.Buffer
	buf.WriteString("<article>\n<h1>")
	buf.WriteString(titlePolicy.Sanitize(p.Title))
	buf.WriteString("</h1>\n")
	buf.Write(contentPolicy.SanitizeBytes(mdToHTML(p.Content)))
	buf.WriteString("</article>\n")
	return buf.Bytes()
}
