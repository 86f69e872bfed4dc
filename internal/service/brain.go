package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/models"
	"github.com/beaconlabs/beacon/pkg/util"
)

// Signals bundles everything the brain reasons over for one tenant. Any
// field may be empty; the prompt degrades accordingly.
type Signals struct {
	Brand    models.Brand
	Metrics  *TopicMetrics
	Trends   []TrendItem
	Mentions []models.SocialPost
}

// ProposedAction is one candidate marketing action from the brain.
type ProposedAction struct {
	Action   string `json:"action"`
	TargetID string `json:"targetId"`
	Reason   string `json:"reason"`
	Draft    string `json:"draft"`
}

const maxActionsPerCycle = 3

// Brain is the stateless reasoning component: one structured prompt, one
// completion, parsed and validated. It never returns an error; failures
// surface as a single ERROR action the caller filters out.
type Brain struct {
	llm    Completer
	logger *zap.Logger
}

func NewBrain(llm Completer, logger *zap.Logger) *Brain {
	return &Brain{llm: llm, logger: logger}
}

func (b *Brain) Decide(ctx context.Context, signals Signals) []ProposedAction {
	prompt := buildPrompt(signals)

	raw, err := b.llm.Complete(ctx, prompt)
	if err != nil {
		if err == ErrLLMDisabled {
			return []ProposedAction{{Action: models.ActionNoAction, Reason: "reasoning disabled"}}
		}
		b.logger.Error("LLM call failed", zap.String("tenant_id", signals.Brand.ID), zap.Error(err))
		return []ProposedAction{{Action: models.ActionError, Reason: err.Error()}}
	}

	actions, err := parseActions(raw)
	if err != nil {
		b.logger.Warn("Failed to parse LLM response",
			zap.String("tenant_id", signals.Brand.ID),
			zap.String("response", util.Truncate(raw, 200)),
			zap.Error(err))
		return []ProposedAction{{Action: models.ActionError, Reason: "malformed response: " + err.Error()}}
	}

	return b.validateActions(signals.Brand.ID, actions)
}

func parseActions(raw string) ([]ProposedAction, error) {
	payload := util.StripCodeFences(raw)

	var response struct {
		Actions []ProposedAction `json:"actions"`
	}
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		return nil, err
	}
	return response.Actions, nil
}

// validateActions enforces the 1-3-unique-kinds contract the prompt asks
// for: unknown kinds are dropped, duplicate kinds keep the first
// occurrence, and the batch is clamped to three.
func (b *Brain) validateActions(tenantID string, actions []ProposedAction) []ProposedAction {
	seen := make(map[string]bool)
	valid := make([]ProposedAction, 0, maxActionsPerCycle)

	for _, action := range actions {
		kind := strings.ToUpper(strings.TrimSpace(action.Action))
		if !models.KnownAction(kind) {
			b.logger.Warn("Dropping unknown action kind",
				zap.String("tenant_id", tenantID),
				zap.String("action", action.Action))
			continue
		}
		if seen[kind] {
			b.logger.Warn("Dropping duplicate action kind",
				zap.String("tenant_id", tenantID),
				zap.String("action", kind))
			continue
		}
		seen[kind] = true

		action.Action = kind
		valid = append(valid, action)
		if len(valid) == maxActionsPerCycle {
			break
		}
	}

	if len(valid) == 0 {
		return []ProposedAction{{Action: models.ActionNoAction, Reason: "no viable action"}}
	}
	return valid
}

func buildPrompt(signals Signals) string {
	var sb strings.Builder

	sb.WriteString("You are the Chief Marketing Officer for the brand \"")
	sb.WriteString(signals.Brand.DisplayName)
	sb.WriteString("\" (@")
	sb.WriteString(signals.Brand.ExternalHandle)
	sb.WriteString(").\n")
	if signals.Brand.Voice != "" {
		sb.WriteString("Brand voice: " + signals.Brand.Voice + "\n")
	}
	if signals.Brand.Knowledge != "" {
		sb.WriteString("Brand knowledge: " + signals.Brand.Knowledge + "\n")
	}

	if signals.Metrics != nil {
		sb.WriteString(fmt.Sprintf("\nMARKET PULSE (%s): social volume 24h %d, interactions 24h %d, contributors %d, sentiment %.2f\n",
			signals.Metrics.Topic,
			signals.Metrics.SocialVolume24h,
			signals.Metrics.Interactions24h,
			signals.Metrics.Contributors24h,
			signals.Metrics.SentimentAverage))
	}

	if len(signals.Trends) > 0 {
		sb.WriteString("\nTRENDING STORIES:\n")
		for _, trend := range signals.Trends {
			sb.WriteString(fmt.Sprintf("- %s (source: %s, sentiment: %.1f, interactions: %d)\n",
				trend.Title, trend.Creator, trend.Sentiment, trend.Interactions))
		}
	}

	if len(signals.Mentions) > 0 {
		sb.WriteString("\nRECENT MENTIONS:\n")
		for _, post := range signals.Mentions {
			sb.WriteString(fmt.Sprintf("- [%s] @%s: %s (likes: %d, replies: %d)\n",
				post.ID, post.Author, util.Truncate(post.Text, 280), post.Likes, post.Replies))
		}
	}

	sb.WriteString(`
YOUR TASK:
Propose 1 to 3 marketing actions for the next cycle. Each action must be a
different kind, chosen from:
- REPLY: answer a question or complaint from the mentions (set targetId to the mention id)
- TREND_JACK: ride one of the trending stories
- CAMPAIGN: a multi-post campaign idea
- GAP_FILL: address a content gap your audience has
- COMMUNITY: engage or celebrate the community

Respond with JSON only, no prose, in this exact shape:
{"actions":[{"action":"REPLY","targetId":"...","reason":"...","draft":"..."}]}
`)

	return sb.String()
}
