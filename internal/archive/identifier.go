// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"regexp"
	"strings"
)

var (
	// arxivPattern matches new-style IDs: "2301.07041", "arXiv:2301.07041v2".
	arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

	// legacyPattern matches pre-2007 IDs: "hep-th/9901001", "math.GT/0309136v1".
	legacyPattern = regexp.MustCompile(`^(?i:arxiv:)?([a-z\-]+(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)$`)

	// arxivDOIPattern matches DataCite DOIs minted by arXiv: "10.48550/arXiv.2301.07041".
	arxivDOIPattern = regexp.MustCompile(`^(?i:10\.48550/arxiv\.)(.+)$`)
)

// ArxivID extracts the normalized arXiv identifier from identifier. It
// accepts bare IDs, the "arXiv:" prefix and arXiv DOIs. ok is false for
// anything else, including DOIs from other registrants.
func ArxivID(identifier string) (id string, ok bool) {
	identifier = strings.TrimSpace(identifier)
	if m := arxivDOIPattern.FindStringSubmatch(identifier); m != nil {
		identifier = m[1]
	}
	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return m[1], true
	}
	if m := legacyPattern.FindStringSubmatch(identifier); m != nil {
		return m[1], true
	}
	return "", false
}

// Slug returns a filesystem-safe filename stem for a normalized arXiv ID.
func Slug(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}
