package fetch

import (
	"net/url"
	"regexp"
	"strings"
)

// sectionSeparator divides aggregated literature files into per-article
// sections; each section may carry one Source: line.
const sectionSeparator = "================================================================================"

var (
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
	pmcAccession = regexp.MustCompile(`PMC(\d+)`)
	sourceLine   = regexp.MustCompile(`Source:\s*(https?://\S+)`)
)

// NormalizeURL rewrites literature-database URLs to their canonical form.
// Checks are ordered and first-match: PubMed pages collapse to the abstract
// URL, PMC accessions anywhere in the URL collapse to the canonical article
// URL, DOI-resolver URLs pass through, everything else is returned as-is
// (scheme-qualified). The function is idempotent.
func NormalizeURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	// PubMed, or any ncbi page whose path ends in a bare numeric id. The
	// final segment must be all digits so canonical PMC URLs (ending in
	// PMC1234567) fall through to the accession rule below.
	if strings.Contains(u.Host, "ncbi.nlm.nih.gov") {
		segment := strings.TrimRight(u.Path, "/")
		if i := strings.LastIndex(segment, "/"); i >= 0 {
			segment = segment[i+1:]
		}
		if digitsOnly.MatchString(segment) {
			return "https://pubmed.ncbi.nlm.nih.gov/" + segment + "/"
		}
	}

	if m := pmcAccession.FindStringSubmatch(raw); m != nil {
		return "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC" + m[1] + "/"
	}

	if strings.Contains(u.Host, "doi.org") {
		return u.String()
	}

	return raw
}

// ExtractSourceURLs splits content on the 80-character separator line and
// collects the first Source: URL of each section, normalized, deduplicated,
// in first-seen order.
func ExtractSourceURLs(content string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, section := range strings.Split(content, sectionSeparator) {
		m := sourceLine.FindStringSubmatch(section)
		if m == nil {
			continue
		}
		u := NormalizeURL(m[1])
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// PubMedFallbackURL derives the PubMed abstract URL for a PMC article URL,
// reusing the accession digits. Returns false for non-PMC URLs.
func PubMedFallbackURL(u string) (string, bool) {
	if !strings.Contains(u, "pmc/articles/PMC") {
		return "", false
	}
	m := pmcAccession.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return "https://pubmed.ncbi.nlm.nih.gov/" + m[1] + "/", true
}
