package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/models"
)

type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func decideWith(t *testing.T, response string) []ProposedAction {
	t.Helper()
	brain := NewBrain(&fakeCompleter{response: response}, zap.NewNop())
	return brain.Decide(context.Background(), Signals{Brand: testBrand("acme", "acme_hq")})
}

func TestDecideParsesActions(t *testing.T) {
	actions := decideWith(t, `{"actions":[{"action":"REPLY","targetId":"p1","reason":"question","draft":"hi"}]}`)

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionReply, actions[0].Action)
	assert.Equal(t, "p1", actions[0].TargetID)
}

func TestDecideStripsMarkdownFences(t *testing.T) {
	actions := decideWith(t, "```json\n{\"actions\":[{\"action\":\"CAMPAIGN\",\"reason\":\"r\",\"draft\":\"d\"}]}\n```")

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionCampaign, actions[0].Action)
}

func TestDecideDedupesActionKinds(t *testing.T) {
	actions := decideWith(t, `{"actions":[
		{"action":"REPLY","targetId":"p1","reason":"first"},
		{"action":"REPLY","targetId":"p2","reason":"second"},
		{"action":"TREND_JACK","reason":"trend"}
	]}`)

	require.Len(t, actions, 2)
	seen := make(map[string]bool)
	for _, action := range actions {
		assert.False(t, seen[action.Action], "duplicate action kind %s", action.Action)
		seen[action.Action] = true
	}
	assert.Equal(t, "p1", actions[0].TargetID)
}

func TestDecideClampsToThree(t *testing.T) {
	actions := decideWith(t, `{"actions":[
		{"action":"REPLY"},
		{"action":"TREND_JACK"},
		{"action":"CAMPAIGN"},
		{"action":"GAP_FILL"},
		{"action":"COMMUNITY"}
	]}`)

	assert.Len(t, actions, 3)
}

func TestDecideDropsUnknownKinds(t *testing.T) {
	actions := decideWith(t, `{"actions":[{"action":"DANCE"},{"action":"community","reason":"r"}]}`)

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionCommunity, actions[0].Action)
}

func TestDecideEmptyBatchBecomesNoAction(t *testing.T) {
	actions := decideWith(t, `{"actions":[]}`)

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionNoAction, actions[0].Action)
}

func TestDecideMalformedResponse(t *testing.T) {
	actions := decideWith(t, "I think you should definitely post more memes.")

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionError, actions[0].Action)
	assert.NotEmpty(t, actions[0].Reason)
}

func TestDecideLLMFailure(t *testing.T) {
	brain := NewBrain(&fakeCompleter{err: errors.New("upstream 500")}, zap.NewNop())
	actions := brain.Decide(context.Background(), Signals{Brand: testBrand("acme", "acme_hq")})

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionError, actions[0].Action)
}

func TestDecideLLMDisabled(t *testing.T) {
	brain := NewBrain(&fakeCompleter{err: ErrLLMDisabled}, zap.NewNop())
	actions := brain.Decide(context.Background(), Signals{Brand: testBrand("acme", "acme_hq")})

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionNoAction, actions[0].Action)
}

func TestBuildPromptIncludesSignals(t *testing.T) {
	completer := &fakeCompleter{response: `{"actions":[{"action":"REPLY"}]}`}
	brain := NewBrain(completer, zap.NewNop())

	brain.Decide(context.Background(), Signals{
		Brand:   models.Brand{ID: "acme", DisplayName: "Acme", ExternalHandle: "acme_hq", Voice: "playful"},
		Metrics: &TopicMetrics{Topic: "cryptocurrencies", Interactions24h: 42},
		Trends:  []TrendItem{{Title: "Big Story", Creator: "newsdesk"}},
		Mentions: []models.SocialPost{
			{ID: "p9", Author: "fan", Text: "when is the next drop?"},
		},
	})

	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0]
	assert.Contains(t, prompt, "Acme")
	assert.Contains(t, prompt, "playful")
	assert.Contains(t, prompt, "Big Story")
	assert.Contains(t, prompt, "p9")
	assert.Contains(t, prompt, "cryptocurrencies")
}
