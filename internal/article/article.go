// Package article holds uploaded source content and converts HTML uploads to
// the plain text the script writers consume.
package article

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"contentops/internal/services"
)

// Article is organization-owned source content.
type Article struct {
	ID             string
	OrganizationID string
	Title          string
	Body           string
	Category       string
	SourceURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the fields required before an article can seed generation.
func (a *Article) Validate() error {
	switch {
	case strings.TrimSpace(a.OrganizationID) == "":
		return services.Wrap(services.ErrValidation, "article", "validate", "organization_id is required", nil)
	case strings.TrimSpace(a.Title) == "":
		return services.Wrap(services.ErrValidation, "article", "validate", "title is required", nil)
	case strings.TrimSpace(a.Body) == "":
		return services.Wrap(services.ErrValidation, "article", "validate", "body is required", nil)
	}
	return nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Extracted is the readable content of an HTML document.
type Extracted struct {
	Title string
	Body  string
}

// FromHTML extracts the title and readable body text of an HTML document.
// Script, style, navigation and footer elements are dropped; paragraphs and
// headings become separate lines.
func FromHTML(html string) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extracted{}, services.Wrap(services.ErrValidation, "article", "parse html", "", err)
	}

	doc.Find("script, style, noscript, nav, footer, header, aside, form").Remove()

	title := strings.TrimSpace(doc.Find("article h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var b strings.Builder
	root.Find("h1, h2, h3, h4, p, li, blockquote").Each(func(_ int, sel *goquery.Selection) {
		// Nested blocks are emitted by their innermost element.
		if sel.Find("p, li, blockquote").Length() > 0 {
			return
		}
		text := collapseSpace(sel.Text())
		if text == "" || (goquery.NodeName(sel) == "h1" && text == title) {
			return
		}
		if goquery.NodeName(sel) == "li" {
			text = "- " + text
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})

	body := strings.TrimSpace(blankLines.ReplaceAllString(b.String(), "\n\n"))
	if body == "" {
		body = collapseSpace(root.Text())
	}
	if body == "" {
		return Extracted{}, services.Wrap(services.ErrValidation, "article", "parse html", "document has no readable text", nil)
	}
	return Extracted{Title: title, Body: body}, nil
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Excerpt returns at most limit runes of the body for prompts and logs.
func (a *Article) Excerpt(limit int) string {
	runes := []rune(a.Body)
	if limit <= 0 || len(runes) <= limit {
		return a.Body
	}
	return fmt.Sprintf("%s…", string(runes[:limit]))
}
