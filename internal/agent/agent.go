package agent

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"github.com/northroute/pkg/schema"
)

const systemPrompt = `You are a helpful travel assistant focused on tourist attractions and trip planning in Canada.

Hard rules:
- Do NOT promote or advertise any business.
- Do NOT mention specific hotel names, restaurant names, tour operator names, or other specific business names/brands.
- If the user asks for hotels, lodging, restaurants, tours, or booking: give neutral guidance using criteria (neighborhood, safety, transit, budget, seasonality, accessibility, amenities) and categories (e.g., boutique hotel, hostel, family-friendly chain) without naming any businesses.
- Prefer practical, safe, family-friendly advice. If you are unsure, say so and ask a clarifying question.

Style:
- Be concise, structured, and location-specific.
- Use bullet points and day-by-day plans when helpful.`

// Generator produces a model completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// Agent generates travel-assistant replies. With a nil Generator every reply
// comes from the canned fallbacks.
type Agent struct {
	llm Generator
}

func New(generator Generator) *Agent {
	return &Agent{llm: generator}
}

// Reply answers the message in the context of the conversation history. It
// never fails: model errors and empty completions fall back to a canned
// non-promotional reply.
func (a *Agent) Reply(ctx context.Context, message string, history []schema.HistoryItem) string {
	if a.llm == nil {
		return fallbackReply(message)
	}

	response, err := a.llm.Generate(ctx, buildPrompt(message, history),
		llms.WithTemperature(0.4),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Chat model call failed, using fallback reply")
		return fallbackReply(message)
	}

	text := strings.TrimSpace(response)
	if text == "" {
		return fallbackReply(message)
	}
	return text
}

func buildPrompt(message string, history []schema.HistoryItem) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
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

// fallbackReply returns a canned itinerary for the few locations that have
// one, otherwise it asks for details. Replies never name businesses.
func fallbackReply(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "toronto"):
		return "Top Toronto attractions (non-promotional):\n" +
			"- CN Tower and the waterfront area\n" +
			"- Royal Ontario Museum\n" +
			"- Distillery Historic District\n" +
			"- St. Lawrence Market area\n" +
			"- High Park (great in spring/fall)\n" +
			"- Day trip idea: Niagara Falls\n"
	case strings.Contains(msg, "vancouver"):
		return "A simple Vancouver plan (non-promotional):\n" +
			"- Day 1: Stanley Park + Seawall, Granville Island, Gastown walk\n" +
			"- Day 2: Capilano area or Grouse area (weather-dependent), Kitsilano beach area\n" +
			"- Optional: Vancouver Aquarium/Science World (good for families)\n"
	case strings.Contains(msg, "montreal"), strings.Contains(msg, "montréal"):
		return "Highlights in Montreal (non-promotional):\n" +
			"- Old Montreal walking loop (historic streets)\n" +
			"- Mount Royal viewpoint\n" +
			"- Montreal Museum of Fine Arts\n" +
			"- Jean-Talon / Atwater market areas\n" +
			"- Seasonal: festivals in summer, outdoor skating in winter\n"
	case strings.Contains(msg, "alberta"), strings.Contains(msg, "banff"), strings.Contains(msg, "jasper"):
		return "Alberta Rockies ideas (non-promotional):\n" +
			"- Banff: Lake Louise / Moraine Lake (check shuttle/season access), easy hikes\n" +
			"- Icefields Parkway scenic drive\n" +
			"- Jasper: Maligne Lake area, stargazing (dark skies)\n" +
			"- Safety: pack layers, plan for rapid weather changes\n"
	default:
		return "Tell me the Canadian city/province (and your dates/budget/interests), and I'll suggest top attractions, a simple itinerary, and practical tips—without promoting any businesses."
	}
}
