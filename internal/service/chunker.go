// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quire Contributors

package service

import "strings"

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 150  // generous overlap helps semantic continuity
)

// splitText splits text into chunks of at most limit characters, carrying
// overlap characters of trailing context into the next chunk. It prefers to
// break on paragraph, line, and sentence boundaries before falling back to
// spaces.
func splitText(text string, limit, overlap int) []string {
	if limit <= 0 {
		limit = defaultChunkSize
	}
	if overlap < 0 || overlap >= limit {
		overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	// Separators ordered from best to worst for semantic meaning.
	separators := []string{"\n\n", "\n", ". ", " "}

	var splitChar string
	found := false
	for _, s := range separators {
		if strings.Contains(text, s) {
			splitChar = s
			found = true
			break
		}
	}
	if !found {
		// Hard cut when the text is one unbroken token.
		return hardCut(text, limit)
	}

	parts := strings.Split(text, splitChar)
	var chunks []string
	var current strings.Builder

	for _, part := range parts {
		if current.Len()+len(part)+len(splitChar) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
			}

			// Start the next chunk with the tail of the previous one.
			carry := ""
			if overlap > 0 && current.Len() > overlap {
				carry = current.String()[current.Len()-overlap:]
			}
			current.Reset()
			current.WriteString(carry)
		}

		if current.Len() > 0 {
			current.WriteString(splitChar)
		}
		current.WriteString(part)
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func hardCut(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		chunks = append(chunks, text[:limit])
		text = text[limit:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
