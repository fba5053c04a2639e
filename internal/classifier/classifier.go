package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"github.com/northroute/internal/llm"
	"github.com/northroute/pkg/schema"
)

const locationSystemPrompt = `You extract a single Canadian location label from the user message, considering the chat history for context.

Return JSON only: {"location": "<Label>"} where <Label> is a short location name like a city, province, or region in Canada.
If the message is ambiguous or not about a specific place, even after checking history, return {"location":"General"}.

Examples:
User: "Things to do in Toronto" -> {"location":"Toronto"}
User: "What about the food there?" (Context: Toronto) -> {"location":"Toronto"}
User: "2-day plan for Vancouver" -> {"location":"Vancouver"}
User: "Best time to visit Alberta?" -> {"location":"Alberta"}
User: "What should I pack?" -> {"location":"General"}`

// keywordLabels maps lowercase keywords to location labels. Order matters:
// earlier entries win, and multi-word names come before their abbreviations
// so "british columbia" is matched as itself rather than via "bc".
var keywordLabels = buildKeywordLabels([]string{
	"toronto",
	"vancouver",
	"montreal",
	"calgary",
	"edmonton",
	"ottawa",
	"quebec",
	"alberta",
	"british columbia",
	"bc",
	"ontario",
	"manitoba",
	"saskatchewan",
	"nova scotia",
	"new brunswick",
	"newfoundland",
	"pei",
	"prince edward island",
	"yukon",
	"nunavut",
	"northwest territories",
	"banff",
	"jasper",
})

type keywordLabel struct {
	keyword string
	label   string
}

func buildKeywordLabels(keywords []string) []keywordLabel {
	pairs := make([]keywordLabel, 0, len(keywords))
	for _, kw := range keywords {
		label := titleCase(kw)
		switch kw {
		case "bc":
			label = "British Columbia"
		case "pei":
			label = "Prince Edward Island"
		}
		pairs = append(pairs, keywordLabel{keyword: kw, label: label})
	}
	return pairs
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Generator produces a model completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// Classifier extracts a location label from a message plus conversation
// context. With a nil Generator only the keyword heuristic runs.
type Classifier struct {
	llm Generator
}

func New(generator Generator) *Classifier {
	return &Classifier{llm: generator}
}

// Extract returns the location label for the message. It never fails: LLM
// errors and unparseable responses fall back to the keyword heuristic, and
// no signal at all yields "General".
func (c *Classifier) Extract(ctx context.Context, message string, history []schema.HistoryItem) string {
	if c.llm == nil {
		return heuristicLocation(message, history)
	}

	response, err := c.llm.Generate(ctx, buildPrompt(message, history),
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Location model call failed, using heuristic")
		return heuristicLocation(message, history)
	}

	jsonStr, err := llm.ExtractJSONObject(response)
	if err != nil {
		log.Warn().Err(err).Str("response", response).Msg("Location response was not JSON, using heuristic")
		return heuristicLocation(message, history)
	}

	var parsed struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return heuristicLocation(message, history)
	}

	location := strings.TrimSpace(parsed.Location)
	if location == "" {
		return schema.DefaultFallbackLocation
	}
	return location
}

func buildPrompt(message string, history []schema.HistoryItem) string {
	var b strings.Builder
	b.WriteString(locationSystemPrompt)
	if len(history) > 0 {
		b.WriteString("\n\nChat history:\n")
		for _, h := range history {
			b.WriteString(h.Role)
			b.WriteString(": ")
			b.WriteString(h.Content)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nUser message: ")
	b.WriteString(message)
	return b.String()
}

// heuristicLocation scans the message for a known keyword, then the history
// newest-first so the most recent mention wins.
func heuristicLocation(message string, history []schema.HistoryItem) string {
	if label, ok := matchKeyword(message); ok {
		return label
	}
	for i := len(history) - 1; i >= 0; i-- {
		if label, ok := matchKeyword(history[i].Content); ok {
			return label
		}
	}
	return schema.DefaultFallbackLocation
}

func matchKeyword(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, pair := range keywordLabels {
		if strings.Contains(lowered, pair.keyword) {
			return pair.label, true
		}
	}
	return "", false
}
