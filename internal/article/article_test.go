package article_test

import (
	"errors"
	"strings"
	"testing"

	"contentops/internal/article"
	"contentops/internal/services"
)

func TestFromHTMLExtractsReadableText(t *testing.T) {
	html := `<html><head><title>Site | Monsoon</title><style>p{}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
  <h1>Monsoon arrives early</h1>
  <p>The  monsoon reached Kerala
  three days ahead of schedule.</p>
  <ul><li>Rainfall above normal</li><li>Farmers relieved</li></ul>
  <script>track()</script>
</article>
<footer>Copyright</footer>
</body></html>`

	got, err := article.FromHTML(html)
	if err != nil {
		t.Fatalf("FromHTML returned error: %v", err)
	}
	if got.Title != "Monsoon arrives early" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	want := "The monsoon reached Kerala three days ahead of schedule.\n\n- Rainfall above normal\n\n- Farmers relieved"
	if got.Body != want {
		t.Fatalf("unexpected body:\n%q\nwant\n%q", got.Body, want)
	}
	for _, noise := range []string{"Home", "Copyright", "track()"} {
		if strings.Contains(got.Body, noise) {
			t.Fatalf("body contains %q", noise)
		}
	}
}

func TestFromHTMLRejectsEmptyDocument(t *testing.T) {
	_, err := article.FromHTML("<html><body><script>x()</script></body></html>")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	a := &article.Article{OrganizationID: "org", Title: "t", Body: "b"}
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Body = "  "
	if err := a.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExcerpt(t *testing.T) {
	a := &article.Article{Body: "नमस्ते दुनिया"}
	if got := a.Excerpt(6); got != "नमस्ते…" {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if got := a.Excerpt(0); got != a.Body {
		t.Fatalf("expected full body, got %q", got)
	}
}
