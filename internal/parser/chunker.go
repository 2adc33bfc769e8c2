package parser

import (
	"pdf-chatbot/internal/helper"
	"pdf-chatbot/internal/models"
)

// ChunkPages splits every page into overlapping windows of chunkSize runes.
// Source and page number are carried over unchanged, and Seq numbers the chunks
// in emission order across all pages.
func ChunkPages(pages []models.Page, chunkSize, chunkOverlap int) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		for _, text := range chunkContent(page.Text, chunkSize, chunkOverlap) {
			seq := len(chunks)
			chunks = append(chunks, models.Chunk{
				ID:         helper.ChunkID(page.Source, page.PageNumber, seq),
				Text:       text,
				Source:     page.Source,
				PageNumber: page.PageNumber,
				Seq:        seq,
			})
		}
	}
	return chunks
}

// chunk content into windows of maxChars runes, consecutive windows sharing
// exactly overlapChars runes; the last window may be shorter
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 || content == "" {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	runes := []rune(content)
	contentLen := len(runes)
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	step := maxChars - overlapChars
	for start := 0; ; start += step {
		end := min(start+maxChars, contentLen)
		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}
	}
	return chunks
}
