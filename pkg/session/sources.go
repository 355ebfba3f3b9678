package session

import (
	"fmt"

	"github.com/wislaw/lexchat/pkg/chat"
	"github.com/wislaw/lexchat/pkg/logger"
	"github.com/wislaw/lexchat/pkg/transport"
)

// safeNormalizeSources guards normalization against malformed descriptors.
// Losing the citations is acceptable; losing the streamed answer is not.
func safeNormalizeSources(raw []transport.RawSource) (sources []chat.SourceRef) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Source normalization failed: %v", r)
			sources = nil
		}
	}()
	return normalizeSources(raw)
}

// normalizeSources converts raw backend descriptors into SourceRefs. The
// backend leaves most fields optional, so each gets the documented default:
// position-based source numbers, a title fallback chain, and the standing
// federal/current/General assumptions.
func normalizeSources(raw []transport.RawSource) []chat.SourceRef {
	if len(raw) == 0 {
		return nil
	}

	sources := make([]chat.SourceRef, 0, len(raw))
	for i, r := range raw {
		number := r.SourceNumber
		if number <= 0 {
			number = i + 1
		}

		title := r.Title
		if title == "" {
			title = r.ModuleTitle
		}
		if title == "" {
			title = fmt.Sprintf("Source %d", number)
		}

		relevance := r.RelevanceScore
		if relevance == 0 {
			relevance = 0.8
		}

		id := r.ID
		if id == "" {
			id = fmt.Sprintf("source-%d", number)
		}

		sources = append(sources, chat.SourceRef{
			ID:             id,
			Title:          title,
			DocumentType:   orDefault(r.DocumentType, "Unknown"),
			Jurisdiction:   orDefault(r.Jurisdiction, "federal"),
			LawStatus:      orDefault(r.LawStatus, "current"),
			RelevanceScore: relevance,
			Section:        normalizeSection(r.Section),
			Citations:      r.Citations,
			ContentPreview: r.ContentPreview,
			SourceNumber:   number,
			Filename:       normalizeFilename(r.FileName),
			DownloadURL:    r.DownloadURL,
		})
	}
	return sources
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func normalizeSection(section string) string {
	if section == "" || section == "Unknown" {
		return "General"
	}
	return section
}

func normalizeFilename(name string) string {
	if name == "Unknown" {
		return ""
	}
	return name
}
