package testsupport

import (
	"context"
	"testing"

	"contentops/internal/article"
	"contentops/internal/config"
	"contentops/internal/database"
	"contentops/internal/language"
	"contentops/internal/output"
	"contentops/internal/store"
	"contentops/internal/submission"
)

// MustOpenDB opens the configured database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenStore opens a store.Store on a fresh database.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()
	return store.New(MustOpenDB(t, cfg))
}

// NewArticle inserts an article owned by organizationID.
func NewArticle(t testing.TB, st *store.Store, organizationID, title string) *article.Article {
	t.Helper()

	a := &article.Article{
		OrganizationID: organizationID,
		Title:          title,
		Body:           "The " + title + " story, told in several paragraphs.",
		Category:       "news",
	}
	if err := st.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	return a
}

// NewSubmission inserts a submission for a in lang with outputs for
// every enabled kind, all in status.
func NewSubmission(t testing.TB, st *store.Store, a *article.Article, lang language.Language, flags submission.Flags, status output.Status) (*submission.Submission, []*output.Output) {
	t.Helper()
	ctx := context.Background()

	sub := &submission.Submission{ArticleID: a.ID, OrganizationID: a.OrganizationID, Language: lang, Flags: flags}
	if err := st.CreateSubmission(ctx, sub); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	var outputs []*output.Output
	for _, kind := range flags.Kinds() {
		o := &output.Output{SubmissionID: sub.ID, OrganizationID: a.OrganizationID, Kind: kind, Status: status}
		if err := st.CreateOutput(ctx, o); err != nil {
			t.Fatalf("CreateOutput: %v", err)
		}
		outputs = append(outputs, o)
	}
	return sub, outputs
}

// SetSubmissionStatus forces a submission into status.
func SetSubmissionStatus(t testing.TB, st *store.Store, sub *submission.Submission, status submission.Status) {
	t.Helper()
	if _, err := st.SetSubmissionStatus(context.Background(), sub.ID, sub.Status, status); err != nil {
		t.Fatalf("SetSubmissionStatus: %v", err)
	}
	sub.Status = status
}

// MustTag attaches a directly added tag named name to o.
func MustTag(t testing.TB, st *store.Store, o *output.Output, name string) *store.Tag {
	t.Helper()
	ctx := context.Background()
	tag, err := st.EnsureTag(ctx, o.OrganizationID, name)
	if err != nil {
		t.Fatalf("EnsureTag: %v", err)
	}
	if _, err := st.AttachTag(ctx, o.ID, tag.ID, false, ""); err != nil {
		t.Fatalf("AttachTag: %v", err)
	}
	return tag
}
