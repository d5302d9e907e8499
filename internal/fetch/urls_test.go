package fetch

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		// Missing scheme gets https.
		{"example.com/paper", "https://example.com/paper"},
		// NCBI pages ending in a numeric id collapse to the PubMed abstract.
		{"https://www.ncbi.nlm.nih.gov/pubmed/123456", "https://pubmed.ncbi.nlm.nih.gov/123456/"},
		{"https://pubmed.ncbi.nlm.nih.gov/123456", "https://pubmed.ncbi.nlm.nih.gov/123456/"},
		{"https://pubmed.ncbi.nlm.nih.gov/123456/", "https://pubmed.ncbi.nlm.nih.gov/123456/"},
		// PMC accessions collapse to the canonical article URL wherever they appear.
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC7891011/", "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC7891011/"},
		{"http://www.ncbi.nlm.nih.gov/pmc/articles/PMC3539452/?report=classic", "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC3539452/"},
		{"https://europepmc.org/articles/PMC55555", "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC55555/"},
		// DOI resolver URLs pass through.
		{"https://doi.org/10.1038/s41586-020-2012-7", "https://doi.org/10.1038/s41586-020-2012-7"},
		{"http://dx.doi.org/10.1000/182", "http://dx.doi.org/10.1000/182"},
		// Everything else is untouched.
		{"https://www.nature.com/articles/s41586", "https://www.nature.com/articles/s41586"},
		{"https://www.ncbi.nlm.nih.gov/books/NBK1234/", "https://www.ncbi.nlm.nih.gov/books/NBK1234/"},
	}

	for _, tt := range tests {
		got := NormalizeURL(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Normalization must be stable under re-application.
		if again := NormalizeURL(got); again != got {
			t.Errorf("NormalizeURL(%q) not idempotent: second pass gave %q", tt.in, again)
		}
	}
}

func TestExtractSourceURLs_SingleSection(t *testing.T) {
	content := "Some text.\n\nSource: https://pubmed.ncbi.nlm.nih.gov/123456/\n"

	got := ExtractSourceURLs(content)
	if len(got) != 1 {
		t.Fatalf("got %d URLs, want 1", len(got))
	}
	if got[0] != "https://pubmed.ncbi.nlm.nih.gov/123456/" {
		t.Errorf("urls[0] = %q, want %q", got[0], "https://pubmed.ncbi.nlm.nih.gov/123456/")
	}
}

func TestExtractSourceURLs_Sections(t *testing.T) {
	sep := strings.Repeat("=", 80)
	content := "Title one\nSource: https://www.ncbi.nlm.nih.gov/pubmed/111\nSource: https://example.com/ignored\n" +
		sep + "\n" +
		"Title two\nSource: https://doi.org/10.1000/xyz\n" +
		sep + "\n" +
		"Title three repeats the first\nSource: https://pubmed.ncbi.nlm.nih.gov/111/\n"

	got := ExtractSourceURLs(content)
	// Only the first Source per section counts, duplicates collapse after
	// normalization, first-seen order is kept.
	want := []string{
		"https://pubmed.ncbi.nlm.nih.gov/111/",
		"https://doi.org/10.1000/xyz",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d URLs %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractSourceURLs_NoSources(t *testing.T) {
	got := ExtractSourceURLs("Just prose.\nNo links here.\n")
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestPubMedFallbackURL(t *testing.T) {
	u, ok := PubMedFallbackURL("https://www.ncbi.nlm.nih.gov/pmc/articles/PMC7891011/")
	if !ok {
		t.Fatal("expected a fallback for a PMC article URL")
	}
	if u != "https://pubmed.ncbi.nlm.nih.gov/7891011/" {
		t.Errorf("fallback = %q, want %q", u, "https://pubmed.ncbi.nlm.nih.gov/7891011/")
	}

	if u, ok := PubMedFallbackURL("https://pubmed.ncbi.nlm.nih.gov/123/"); ok {
		t.Errorf("unexpected fallback %q for a PubMed URL", u)
	}
	if u, ok := PubMedFallbackURL("https://example.com/paper"); ok {
		t.Errorf("unexpected fallback %q for a plain URL", u)
	}
}
