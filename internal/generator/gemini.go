package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"flashdeck-backend/internal/models"
)

type GeminiGenerator struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	rateChan  chan struct{} // Token bucket
}

func NewGeminiGenerator(apiKey, modelName string, concurrentReqs int) (*GeminiGenerator, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiGenerator{
		client:    client,
		model:     model,
		modelName: modelName,
		rateChan:  rateChan,
	}, nil
}

func (g *GeminiGenerator) Close() {
	g.client.Close()
}

// acquireRate blocks until a rate slot is available
func (g *GeminiGenerator) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (g *GeminiGenerator) releaseRate() {
	g.rateChan <- struct{}{}
}

func (g *GeminiGenerator) GenerateProposals(ctx context.Context, text string) (*Result, error) {
	if err := g.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer g.releaseRate()

	prompt := buildProposalPrompt(text)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	proposals := parseProposals(extractText(resp))
	if len(proposals) == 0 {
		return nil, fmt.Errorf("Gemini returned no usable flashcard proposals")
	}

	return &Result{Proposals: proposals, Model: g.modelName}, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func buildProposalPrompt(text string) string {
	var b strings.Builder

	b.WriteString("You are an expert flashcard creator. Generate high-quality flashcards from the source text below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")

	b.WriteString(`Rules:
- Front must be a question or term under 200 characters
- Back must be a self-contained answer under 500 characters
- No two cards may test the same concept
- Cover the full breadth of the text, not just the opening

JSON schema per card:
{"front": "string", "back": "string"}
`)

	b.WriteString("\n---SOURCE TEXT START---\n")
	b.WriteString(text)
	b.WriteString("\n---SOURCE TEXT END---\n")

	return b.String()
}

// parseProposals strips markdown fences, salvages the JSON array if the model
// wrapped it in prose, and drops or trims malformed cards.
func parseProposals(rawText string) []models.FlashcardProposal {
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	var cards []models.FlashcardProposal
	if err := json.Unmarshal([]byte(rawText), &cards); err != nil {
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(rawText[start:end+1]), &cards)
		}
	}

	var valid []models.FlashcardProposal
	for _, c := range cards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front == "" || c.Back == "" {
			continue
		}
		if frontRunes := []rune(c.Front); len(frontRunes) > models.FrontMaxLen {
			c.Front = string(frontRunes[:models.FrontMaxLen])
		}
		if backRunes := []rune(c.Back); len(backRunes) > models.BackMaxLen {
			c.Back = string(backRunes[:models.BackMaxLen])
		}
		valid = append(valid, c)
	}
	return valid
}
