package generator

import (
	"context"
	"fmt"
	"strings"

	"flashdeck-backend/internal/models"
)

// MockGenerator is a deterministic stand-in used in tests and when no Gemini
// API key is configured. It chunks the text into sentences and turns each
// chunk into a question/answer pair, so the same text always yields the same
// proposals.
type MockGenerator struct {
	MaxProposals int
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{MaxProposals: 10}
}

func (g *MockGenerator) GenerateProposals(ctx context.Context, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sentences := splitSentences(text)
	max := g.MaxProposals
	if max <= 0 {
		max = 10
	}

	var proposals []models.FlashcardProposal
	for _, s := range sentences {
		if len(proposals) >= max {
			break
		}
		words := strings.Fields(s)
		if len(words) < 4 {
			continue
		}

		topic := strings.Join(words[:3], " ")
		front := fmt.Sprintf("What does the text say about %q?", topic)
		back := s
		if backRunes := []rune(back); len(backRunes) > models.BackMaxLen {
			back = string(backRunes[:models.BackMaxLen])
		}
		if frontRunes := []rune(front); len(frontRunes) > models.FrontMaxLen {
			front = string(frontRunes[:models.FrontMaxLen])
		}

		proposals = append(proposals, models.FlashcardProposal{Front: front, Back: back})
	}

	if len(proposals) == 0 {
		// Bounds checking upstream guarantees 1000+ chars, so this only
		// happens for degenerate input like one unbroken token.
		proposals = append(proposals, models.FlashcardProposal{
			Front: "What is the main subject of the pasted text?",
			Back:  string([]rune(text)[:min(len([]rune(text)), models.BackMaxLen)]),
		})
	}

	return &Result{Proposals: proposals, Model: "mock-generator-v1"}, nil
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(b.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
