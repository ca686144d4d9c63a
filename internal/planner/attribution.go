package planner

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTitleWordRunes is the length a title word must exceed to count in a fuzzy match.
const minTitleWordRunes = 3

// AttributeBlock finds the deadline a study block belongs to. An explicit
// DeadlineID wins; otherwise the block label is matched against the significant
// words of each deadline title and the first deadline in list order that
// matches is returned.
func AttributeBlock(block SessionBlock, deadlines []Deadline) (Deadline, bool) {
	if block.DeadlineID != "" {
		for _, d := range deadlines {
			if d.ID == block.DeadlineID {
				return d, true
			}
		}
		return Deadline{}, false
	}

	label := foldText(block.Label)
	if strings.TrimSpace(label) == "" {
		return Deadline{}, false
	}
	for _, d := range deadlines {
		if titleMatches(label, d.Title) {
			return d, true
		}
	}
	return Deadline{}, false
}

func titleMatches(foldedLabel, title string) bool {
	for _, word := range titleWords(title) {
		if strings.Contains(foldedLabel, word) {
			return true
		}
	}
	return false
}

// titleWords returns the folded words of title longer than minTitleWordRunes.
func titleWords(title string) []string {
	fields := strings.FieldsFunc(foldText(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minTitleWordRunes {
			words = append(words, f)
		}
	}
	return words
}
