// bot/gateway/split.go
package gateway

import "strings"

// MessageLimit is the chat platform's maximum message length.
const MessageLimit = 2000

// SplitMessage breaks content into chunks that fit the message limit,
// preferring to cut on line boundaries. A single line longer than the limit
// is hard-cut.
func SplitMessage(content string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	if len(content) <= limit {
		return []string{content}
	}

	var chunks []string
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		// Hard-cut oversized single lines.
		for len(line) > limit {
			if b.Len() > 0 {
				chunks = append(chunks, b.String())
				b.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}

		need := len(line)
		if b.Len() > 0 {
			need += b.Len() + 1
		}
		if need > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
