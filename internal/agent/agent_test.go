package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiuser-chat/internal/agent"
)

// stubClient returns a canned completion or error.
type stubClient struct {
	reply string
	err   error

	lastSystem string
	lastUser   string
}

func (c *stubClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.lastSystem = systemPrompt
	c.lastUser = userPrompt
	return c.reply, c.err
}

func TestDecider_ShouldReply_Yes(t *testing.T) {
	decider := agent.NewDecider(&stubClient{reply: `{"should_reply": true}`})

	yes, err := decider.ShouldReply(context.Background(), "can someone help me?", nil)

	require.NoError(t, err)
	assert.True(t, yes)
}

func TestDecider_ShouldReply_No(t *testing.T) {
	decider := agent.NewDecider(&stubClient{reply: `{"should_reply": false}`})

	yes, err := decider.ShouldReply(context.Background(), "lol nice one", nil)

	require.NoError(t, err)
	assert.False(t, yes)
}

func TestDecider_ShouldReply_ToleratesWrappedJSON(t *testing.T) {
	decider := agent.NewDecider(&stubClient{
		reply: "Sure, here is my verdict:\n```json\n{\"should_reply\": true}\n```",
	})

	yes, err := decider.ShouldReply(context.Background(), "what is a goroutine?", nil)

	require.NoError(t, err)
	assert.True(t, yes)
}

func TestDecider_FailsClosedOnError(t *testing.T) {
	decider := agent.NewDecider(&stubClient{err: errors.New("upstream timeout")})

	yes, err := decider.ShouldReply(context.Background(), "hello?", nil)

	require.Error(t, err)
	assert.False(t, yes, "any failure must mean no reply")
}

func TestDecider_FailsClosedOnMalformedVerdict(t *testing.T) {
	decider := agent.NewDecider(&stubClient{reply: "yes, definitely reply"})

	yes, err := decider.ShouldReply(context.Background(), "hello?", nil)

	require.Error(t, err)
	assert.False(t, yes)
}

func TestDecider_IncludesConversationInPrompt(t *testing.T) {
	stub := &stubClient{reply: `{"should_reply": false}`}
	decider := agent.NewDecider(stub)

	_, err := decider.ShouldReply(context.Background(), "and then?", []string{"alice: I deployed it", "bob: nice"})

	require.NoError(t, err)
	assert.Contains(t, stub.lastUser, "alice: I deployed it")
	assert.Contains(t, stub.lastUser, "Latest message: and then?")
}

func TestResponder_Reply_ParsesStructuredMessage(t *testing.T) {
	responder := agent.NewResponder(&stubClient{reply: `{"message": "A goroutine is a lightweight thread."}`})

	reply, err := responder.Reply(context.Background(), "what is a goroutine?", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "A goroutine is a lightweight thread.", reply)
}

func TestResponder_Reply_FallsBackToRawText(t *testing.T) {
	responder := agent.NewResponder(&stubClient{reply: "A goroutine is a lightweight thread."})

	reply, err := responder.Reply(context.Background(), "what is a goroutine?", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "A goroutine is a lightweight thread.", reply)
}

func TestResponder_Reply_EmptyIsAnError(t *testing.T) {
	responder := agent.NewResponder(&stubClient{reply: "   "})

	_, err := responder.Reply(context.Background(), "anyone there?", nil, nil)

	require.Error(t, err)
}

func TestResponder_Reply_IncludesMembersAndHistory(t *testing.T) {
	stub := &stubClient{reply: `{"message": "hi"}`}
	responder := agent.NewResponder(stub)

	_, err := responder.Reply(context.Background(), "summarize please",
		[]string{"alice: shipped v2", "bob: tests pass"},
		[]string{"alice", "bob"})

	require.NoError(t, err)
	assert.Contains(t, stub.lastUser, "alice, bob")
	assert.Contains(t, stub.lastUser, "bob: tests pass")
}
