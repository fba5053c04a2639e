package backend

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/northroute/pkg/schema"
)

// ResolveLocation classifies which Canadian location the message is about,
// given the caller's conversation context. It never fails: transport errors,
// non-2xx statuses, undecodable bodies, and blank labels all degrade to the
// fallback sentinel so the router always makes progress. One attempt, no
// retry, since classification must not stall a submission.
func (c *Client) ResolveLocation(ctx context.Context, message string, history []schema.HistoryItem) string {
	var resp schema.ExtractLocationResponse
	err := c.postJSON(ctx, "/extract-location", schema.ExtractLocationRequest{
		Message: message,
		History: history,
	}, &resp)
	if err != nil {
		log.Debug().Err(err).Str("fallback", c.fallbackKey).Msg("location classification unavailable")
		return c.fallbackKey
	}

	location := strings.TrimSpace(resp.Location)
	if location == "" {
		log.Debug().Str("fallback", c.fallbackKey).Msg("classifier returned no location")
		return c.fallbackKey
	}

	log.Debug().Str("location", location).Msg("location resolved")
	return location
}
