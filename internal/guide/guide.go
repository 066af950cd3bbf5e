// Package guide tracks progress through a discussion guide.
package guide

import (
	"errors"
	"fmt"
	"strings"

	"voice-interviewer-go/internal/types"
)

var ErrInvalid = errors.New("invalid discussion guide")

// Next returns the section to use after a user response. Without a guide, or
// with an empty one, the index is left unchanged. With one it advances by one
// and stays on the last section.
func Next(current int, g *types.DiscussionGuide) int {
	if g == nil || len(g.Sections) == 0 {
		return current
	}
	return min(current+1, len(g.Sections)-1)
}

// CurrentSection returns the section at idx, or false when idx is out of range.
func CurrentSection(idx int, g *types.DiscussionGuide) (types.GuideSection, bool) {
	if g == nil || idx < 0 || idx >= len(g.Sections) {
		return types.GuideSection{}, false
	}
	return g.Sections[idx], true
}

// Validate checks the structure produced by a generator or a file loader.
func Validate(g *types.DiscussionGuide) error {
	if g == nil {
		return fmt.Errorf("%w: missing", ErrInvalid)
	}
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalid)
	}
	if len(g.Sections) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalid)
	}
	for i, s := range g.Sections {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("%w: section %d has no title", ErrInvalid, i+1)
		}
	}
	return nil
}
