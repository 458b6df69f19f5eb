// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"

	"github.com/pdiddy/icite/pkg/types"
)

// Context assembly defaults.
const (
	DefaultMaxContextPapers = 5
	DefaultMaxContextChars  = 200000
)

// SelectContextPapers returns seeds followed by related, without repeated
// identifiers, capped at max papers.
func SelectContextPapers(seeds, related []types.Paper, max int) []types.Paper {
	if max <= 0 {
		max = DefaultMaxContextPapers
	}
	seen := make(map[string]bool, len(seeds)+len(related))
	var out []types.Paper
	for _, group := range [][]types.Paper{seeds, related} {
		for _, p := range group {
			if len(out) == max {
				return out
			}
			if seen[p.Identifier] {
				continue
			}
			seen[p.Identifier] = true
			out = append(out, p)
		}
	}
	return out
}

// BuildContext renders papers as the article text handed to the chat
// model. Each paper starts with a "[identifier] title" header followed by
// its abstract and, when present, its full text. The result is truncated
// to maxChars bytes.
func BuildContext(papers []types.Paper, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	var b strings.Builder
	for i, p := range papers {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + p.Identifier + "] " + p.Title + "\n")
		if p.Abstract != "" {
			b.WriteString(p.Abstract + "\n")
		}
		if p.Content != "" {
			b.WriteString("\n" + p.Content + "\n")
		}
	}
	s := b.String()
	if len(s) > maxChars {
		s = truncate(s, maxChars)
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && n < len(s) && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
