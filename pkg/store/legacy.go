package store

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wislaw/lexchat/pkg/chat"
)

// Legacy snapshots store sources as a free-text context blob instead of
// structured records. ParseLegacyContext reconstructs approximate SourceRefs
// from such a blob. It is best-effort and lossy; it exists to keep old
// snapshots viewable, not as a format contract.

var legacySourceHeader = regexp.MustCompile(`^Source\s+(\d+)\s+\(Relevance:\s*([0-9.]+)\)`)

// legalHeadingMarkers flag a content line as a probable document heading.
var legalHeadingMarkers = []string{
	"STATUTE", "SECTION", "CHAPTER", "ARTICLE", "AMENDMENT",
	"U.S.C.", "C.F.R.", "WIS. STAT.", " ACT", " CODE", " V. ",
}

func ParseLegacyContext(blob string) []chat.SourceRef {
	var sources []chat.SourceRef
	var current *chat.SourceRef
	inContent := false

	flush := func() {
		if current == nil {
			return
		}
		if current.Title == "" {
			current.Title = "Source " + strconv.Itoa(current.SourceNumber)
		}
		current.ContentPreview = strings.TrimSpace(current.ContentPreview)
		sources = append(sources, *current)
		current = nil
	}

	for _, line := range strings.Split(blob, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := legacySourceHeader.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			relevance, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				relevance = 0
			}
			current = &chat.SourceRef{
				SourceNumber:   number,
				RelevanceScore: relevance,
				Jurisdiction:   "federal",
				LawStatus:      "current",
				Section:        "General",
			}
			inContent = false
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.Contains(trimmed, "Document Type:"):
			current.DocumentType = afterColon(trimmed)
			inContent = false
		case strings.Contains(trimmed, "Jurisdiction:"):
			current.Jurisdiction = afterColon(trimmed)
			inContent = false
		case strings.Contains(trimmed, "Citations:"):
			for _, citation := range strings.Split(afterColon(trimmed), ",") {
				if c := strings.TrimSpace(citation); c != "" {
					current.Citations = append(current.Citations, c)
				}
			}
			inContent = false
		case strings.Contains(trimmed, "Content:"):
			current.ContentPreview = afterColon(trimmed)
			inContent = true
		case inContent && trimmed != "":
			if current.Title == "" && looksLikeHeading(trimmed) {
				current.Title = trimmed
			}
			if current.ContentPreview != "" {
				current.ContentPreview += " "
			}
			current.ContentPreview += trimmed
		}
	}
	flush()

	return sources
}

func afterColon(line string) string {
	_, value, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}

// looksLikeHeading reports whether a content line resembles a document
// heading: all-caps or title-case and short, or carrying a legal marker.
func looksLikeHeading(line string) bool {
	if len(line) < 1 || len(line) > 100 {
		return false
	}

	upper := strings.ToUpper(line)
	for _, marker := range legalHeadingMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}

	if line == upper && strings.ContainsAny(line, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return true
	}
	return isTitleCase(line)
}

func isTitleCase(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	for _, word := range words {
		first := rune(word[0])
		if first >= 'a' && first <= 'z' {
			return false
		}
	}
	return true
}
