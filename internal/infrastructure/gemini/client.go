package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

const DefaultModel = "gemini-1.5-flash"

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.ResponseMIMEType = "application/json"

	if log == nil {
		log = zap.NewNop()
	}
	return &GeminiClient{
		client: client,
		model:  model,
		log:    log,
	}, nil
}

func (c *GeminiClient) Close() {
	c.client.Close()
}

// Icebreakers asks the model for three opening lines built on the music the
// two profiles share. A model failure falls back to canned lines.
func (c *GeminiClient) Icebreakers(ctx context.Context, a, b *domain.Profile) ([]string, error) {
	shared := SharedGenres(a, b, 5)
	prompt := fmt.Sprintf(`
		Generate 3 short icebreaker messages for two people who just matched on a music dating app.
		Person 1: %s. Favourite genres: %v
		Person 2: %s. Favourite genres: %v
		Genres they share: %v

		Focus on the music they share, or an interesting contrast if they share nothing.
		Output: JSON array of strings. Example: ["Hi...", "Hello..."]
	`, a.Name, topGenres(a, 5), b.Name, topGenres(b, 5), shared)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.log.Warn("gemini unavailable, using fallback icebreakers", zap.Error(err))
		return FallbackIcebreakers(shared), nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return FallbackIcebreakers(shared), nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return ParseIcebreakers(sb.String())
}

// ParseIcebreakers reads a JSON array of lines, tolerating markdown fences
// and plain newline-separated text.
func ParseIcebreakers(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var lines []string
	if err := json.Unmarshal([]byte(text), &lines); err != nil {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "[") && !strings.HasSuffix(line, "]") {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return nil, fmt.Errorf("failed to parse icebreakers: %w", err)
		}
	}
	return lines, nil
}

func FallbackIcebreakers(shared []string) []string {
	if len(shared) == 0 {
		return []string{"What song have you had on repeat this week?"}
	}
	return []string{fmt.Sprintf("Looks like we both love %s. Who got you into it?", shared[0])}
}

// SharedGenres lists genres present in both distributions, strongest first.
func SharedGenres(a, b *domain.Profile, limit int) []string {
	da, db := distribution(a), distribution(b)
	type weighted struct {
		genre  string
		weight float64
	}
	var common []weighted
	for g, wa := range da {
		if wb, ok := db[g]; ok {
			common = append(common, weighted{genre: g, weight: wa + wb})
		}
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].weight == common[j].weight {
			return common[i].genre < common[j].genre
		}
		return common[i].weight > common[j].weight
	})
	out := make([]string, 0, limit)
	for i := 0; i < len(common) && i < limit; i++ {
		out = append(out, common[i].genre)
	}
	return out
}

func topGenres(p *domain.Profile, limit int) []string {
	return SharedGenres(p, p, limit)
}

func distribution(p *domain.Profile) map[string]float64 {
	if p == nil || p.Music == nil || p.Music.Analysis == nil {
		return nil
	}
	return p.Music.Analysis.GenreDistribution
}
