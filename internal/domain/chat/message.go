package chat

import (
	"strings"
	"time"
)

// Message tags. The origin tag is set from the sender; the rest are
// derived from content and never edited directly.
const (
	TagAssistant = "AI"
	TagUser      = "User"
	TagQuestions = "questions"
	TagCode      = "code"
)

// Filter values understood by FilterMessages. Any other value selects
// messages carrying that tag.
const (
	FilterAll       = "all"
	FilterFavorites = "favorites"
)

// codeChars are the bracket and brace characters that mark a message as
// code-bearing, in addition to fenced blocks.
const codeChars = "<>{}()"

// Message is a single chat message. The ID is the creation timestamp in
// milliseconds and, together with Timestamp, is fixed at creation even
// for messages whose content streams in incrementally.
type Message struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	IsAssistant bool      `json:"isAI"`
	Timestamp   time.Time `json:"timestamp"`
	Favorite    bool      `json:"favorite"`
	Tags        []string  `json:"tags"`
}

// NewMessage constructs a message with its tags derived from content.
func NewMessage(id int64, content string, isAssistant bool, timestamp time.Time) Message {
	return Message{
		ID:          id,
		Content:     content,
		IsAssistant: isAssistant,
		Timestamp:   timestamp,
		Tags:        DeriveTags(content, isAssistant),
	}
}

// DeriveTags computes the deterministic tag set for a message: the origin
// tag, "questions" when the content asks one, and "code" when it carries
// fenced blocks or bracket characters.
func DeriveTags(content string, isAssistant bool) []string {
	tags := make([]string, 0, 3)
	if isAssistant {
		tags = append(tags, TagAssistant)
	} else {
		tags = append(tags, TagUser)
	}
	if strings.Contains(content, "?") {
		tags = append(tags, TagQuestions)
	}
	if strings.Contains(content, "```") || strings.ContainsAny(content, codeChars) {
		tags = append(tags, TagCode)
	}
	return tags
}

// HasTag reports whether the message carries the given tag.
func (m Message) HasTag(tag string) bool {
	for _, candidate := range m.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Highlight is a half-open byte range of Content matching the search term.
type Highlight struct {
	Start int
	End   int
}

// FilterResult pairs a message with the content ranges that matched the
// search term, for rendering-time highlighting.
type FilterResult struct {
	Message    Message
	Highlights []Highlight
}

// FilterMessages projects messages through a tag filter and an optional
// case-insensitive search term. The input sequence is never mutated and
// display order is preserved.
func FilterMessages(messages []Message, filter, searchTerm string) []FilterResult {
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	results := make([]FilterResult, 0, len(messages))
	for _, msg := range messages {
		switch filter {
		case FilterAll, "":
		case FilterFavorites:
			if !msg.Favorite {
				continue
			}
		default:
			if !msg.HasTag(filter) {
				continue
			}
		}

		if term == "" {
			results = append(results, FilterResult{Message: msg})
			continue
		}

		highlights := findMatches(msg.Content, term)
		if len(highlights) == 0 {
			continue
		}
		results = append(results, FilterResult{Message: msg, Highlights: highlights})
	}
	return results
}

// ToggleFavorite flips the favorite flag on the matching message and
// reports whether anything changed; unknown IDs are a silent no-op.
func ToggleFavorite(messages []Message, messageID int64) bool {
	for i := range messages {
		if messages[i].ID == messageID {
			messages[i].Favorite = !messages[i].Favorite
			return true
		}
	}
	return false
}

// findMatches locates every occurrence of the lowercased term within
// content, case-insensitively.
func findMatches(content, term string) []Highlight {
	lowered := strings.ToLower(content)
	var highlights []Highlight
	for from := 0; ; {
		idx := strings.Index(lowered[from:], term)
		if idx < 0 {
			break
		}
		start := from + idx
		highlights = append(highlights, Highlight{Start: start, End: start + len(term)})
		from = start + len(term)
	}
	return highlights
}
