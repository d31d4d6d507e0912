package handlers

import (
	"embed"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"
)

//go:embed docs/*.md
var docFiles embed.FS

// allowedDocs maps public document names to embedded files
var allowedDocs = map[string]string{
	"api": "docs/api.md",
}

var docTitles = map[string]string{
	"api": "API Reference",
}

type DocsHandler struct{}

func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

// ServeMarkdownAsHTML serves embedded Markdown documents as HTML
func (h *DocsHandler) ServeMarkdownAsHTML(c *gin.Context) {
	docName := c.Param("doc")
	if docName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document name required"})
		return
	}

	fileName, exists := allowedDocs[docName]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	content, err := docFiles.ReadFile(fileName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags,
	})
	htmlContent := blackfriday.Run(content, blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions))

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, h.wrapWithTheme(string(htmlContent), getDocumentTitle(docName)))
}

// getDocumentTitle returns a human-readable title for the document
func getDocumentTitle(docName string) string {
	if title, exists := docTitles[docName]; exists {
		return title
	}
	return strings.ReplaceAll(docName, "_", " ")
}

func (h *DocsHandler) wrapWithTheme(content, title string) string {
	return `<!DOCTYPE html>
<html lang="ko">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + ` - MemeBoard</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Apple SD Gothic Neo', sans-serif;
            line-height: 1.6;
            color: #1f2937;
            background: #f8f9fa;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 960px; margin: 0 auto; }
        .header {
            background: linear-gradient(135deg, #7c3aed 0%, #a855f7 100%);
            color: white;
            padding: 1.5rem 2rem;
            border-radius: 12px;
            margin-bottom: 1.5rem;
        }
        .content {
            background: white;
            padding: 2rem 2.5rem;
            border-radius: 12px;
            border: 1px solid #e5e7eb;
        }
        .content h2 { color: #7c3aed; margin-top: 2rem; }
        .content code { background: #f3f4f6; padding: 0.1rem 0.3rem; border-radius: 4px; }
        .content pre { background: #111827; color: #f9fafb; padding: 1rem; border-radius: 8px; overflow-x: auto; }
        .content pre code { background: none; padding: 0; }
        .content table { border-collapse: collapse; width: 100%; }
        .content th, .content td { border: 1px solid #e5e7eb; padding: 0.4rem 0.6rem; text-align: left; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>` + title + `</h1></div>
        <div class="content">
            ` + content + `
        </div>
    </div>
</body>
</html>`
}
