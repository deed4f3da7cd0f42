// Package pipeline defines the article-generation data model and orchestrator.
package pipeline

import "strings"

// Request is the inbound payload for one generation run. The three discrete
// competitor fields and the array form are merged into one candidate list.
type Request struct {
	Keyword        string   `json:"keyword"`
	URLs           []string `json:"urls"`
	CompetitorURL1 string   `json:"competitorUrl1"`
	CompetitorURL2 string   `json:"competitorUrl2"`
	CompetitorURL3 string   `json:"competitorUrl3"`
}

// CandidateURLs merges, trims, and deduplicates the requested source URLs,
// dropping empty entries. Order of first appearance is preserved.
func (r Request) CandidateURLs() []string {
	raw := make([]string, 0, len(r.URLs)+3)
	raw = append(raw, r.URLs...)
	raw = append(raw, r.CompetitorURL1, r.CompetitorURL2, r.CompetitorURL3)

	seen := make(map[string]bool, len(raw))
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// AcquisitionResult holds the outcome of fetching one source URL. Exactly one
// of Text or Err is meaningful.
type AcquisitionResult struct {
	URL  string
	Text string
	Err  error
}

// Source is a successfully acquired competitor article.
type Source struct {
	URL  string
	Text string
}

// Warning records a non-fatal, per-URL acquisition failure.
type Warning struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Outline is the heading-only structure generated before full body text.
type Outline struct {
	H1       string           `json:"h1"`
	Sections []OutlineSection `json:"sections"`
}

// OutlineSection is one H2 with its H3 subsection titles.
type OutlineSection struct {
	H2          string   `json:"h2"`
	Subsections []string `json:"subsections"`
}

// Article mirrors Outline with body text attached at every heading level.
type Article struct {
	H1           string           `json:"h1"`
	Introduction string           `json:"introduction"`
	Sections     []ArticleSection `json:"sections"`
	Summary      string           `json:"summary"`
}

// ArticleSection is one H2 with its body and H3 subsections.
type ArticleSection struct {
	H2          string              `json:"h2"`
	Content     string              `json:"content"`
	Subsections []ArticleSubsection `json:"subsections"`
}

// ArticleSubsection is one H3 with its body.
type ArticleSubsection struct {
	H3      string `json:"h3"`
	Content string `json:"content"`
}

// Heading is one entry of the flattened heading projection.
type Heading struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Body  string `json:"body"`
}

// Response is the sole externally visible result of a pipeline run.
type Response struct {
	Title        string    `json:"title"`
	Introduction string    `json:"introduction"`
	Summary      string    `json:"summary"`
	Outline      Outline   `json:"outline"`
	Article      Article   `json:"article"`
	Headings     []Heading `json:"headings"`
	Warnings     []Warning `json:"warnings"`
}

// FlattenHeadings walks the article sections in document order, emitting each
// H2 before its H3 children.
func FlattenHeadings(article Article) []Heading {
	headings := make([]Heading, 0, len(article.Sections)*4)
	for _, section := range article.Sections {
		if section.H2 != "" {
			headings = append(headings, Heading{Level: "h2", Text: section.H2, Body: section.Content})
		}
		for _, sub := range section.Subsections {
			if sub.H3 != "" {
				headings = append(headings, Heading{Level: "h3", Text: sub.H3, Body: sub.Content})
			}
		}
	}
	return headings
}
