package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ProjectStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks every match of patterns in the conversation history
// before it is stored. The caller's project is left untouched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ProjectStore) ports.ProjectStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, projectID string, project *domain.Project) error {
	masked := project.Clone()
	for i, e := range masked.History {
		for _, p := range m.patterns {
			e.Content = p.ReplaceAllString(e.Content, Mask)
		}
		masked.History[i].Content = e.Content
	}
	return m.next.Save(ctx, projectID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, projectID string) (*domain.Project, error) {
	return m.next.Load(ctx, projectID)
}

func (m *piiMiddleware) Delete(ctx context.Context, projectID string) error {
	return m.next.Delete(ctx, projectID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
