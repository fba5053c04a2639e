package contextbuilder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northroute/internal/conversation"
)

func threadWith(n int) conversation.Thread {
	th := conversation.NewThread("Toronto")
	for i := 0; i < n; i++ {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		th = th.Append(conversation.NewMessage(role, fmt.Sprintf("turn %d", i)))
	}
	return th
}

func TestForResolutionUnbounded(t *testing.T) {
	b := New(0)

	history := b.ForResolution(threadWith(7))
	require.Len(t, history, 7)
	assert.Equal(t, "turn 0", history[0].Content)
	assert.Equal(t, "turn 6", history[6].Content)
}

func TestForResolutionKeepsNewestWhenBounded(t *testing.T) {
	b := New(4)

	history := b.ForResolution(threadWith(10))
	require.Len(t, history, 4)
	assert.Equal(t, "turn 6", history[0].Content)
	assert.Equal(t, "turn 9", history[3].Content)
}

func TestForResolutionShortThreadUntouched(t *testing.T) {
	b := New(20)

	history := b.ForResolution(threadWith(3))
	assert.Len(t, history, 3)
}

func TestForResolutionEmptyThread(t *testing.T) {
	b := New(20)

	history := b.ForResolution(conversation.NewThread("General"))
	assert.Empty(t, history)
}

func TestForReplyFullHistoryInOrder(t *testing.T) {
	b := New(2) // resolution bound must not leak into reply context

	history := b.ForReply(threadWith(9))
	require.Len(t, history, 9)
	for i := range history {
		assert.Equal(t, fmt.Sprintf("turn %d", i), history[i].Content)
	}
}

func TestRolesSurviveConversion(t *testing.T) {
	th := conversation.NewThread("Banff")
	th = th.Append(conversation.NewMessage(conversation.RoleUser, "q"))
	th = th.Append(conversation.NewMessage(conversation.RoleAssistant, "a"))

	history := New(0).ForReply(th)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}
