//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactFooter = "Kontakta support@fortuspay.com eller ring 010-222 15 20 för hjälp."

// TestE2E_Conversation runs two turns in one session and checks that the
// second request to the provider carries the first exchange.
func TestE2E_Conversation(t *testing.T) {
	env := SetupE2EEnv(t, time.Minute)
	defer env.Cleanup()

	first, err := env.Chat(map[string]string{"question": "How do I connect Swish?", "sessionId": "e2e"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.True(t, strings.HasSuffix(first.Answer, contactFooter))

	_, err = env.Chat(map[string]string{"question": "And the printer?", "sessionId": "e2e"})
	require.NoError(t, err)

	requests := env.Completion.Requests()
	require.Len(t, requests, 2)

	t.Run("generation parameters", func(t *testing.T) {
		assert.Equal(t, "llama-3.3-70b-versatile", requests[0].Model)
		assert.InDelta(t, 0.3, requests[0].Temperature, 0.001)
		assert.Equal(t, 500, requests[0].MaxTokens)
	})

	t.Run("grounded system prompt", func(t *testing.T) {
		system := requests[0].Messages[0]
		assert.Equal(t, openai.ChatMessageRoleSystem, system.Role)
		assert.Contains(t, system.Content, "### Connect Swish\nStep 1: open Settings.\nStep 2: choose Swish.")
		assert.NotContains(t, system.Content, "### A")
	})

	t.Run("history replayed", func(t *testing.T) {
		msgs := requests[1].Messages
		require.Len(t, msgs, 4)
		assert.Equal(t, "How do I connect Swish?", msgs[1].Content)
		assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
		assert.Equal(t, "And the printer?", msgs[3].Content)
		assert.Contains(t, msgs[0].Content, "### Printer setup")
	})

	assert.Equal(t, 1, env.Fetches())
}

// TestE2E_Errors covers the error surface of /chat.
func TestE2E_Errors(t *testing.T) {
	env := SetupE2EEnv(t, time.Minute)
	defer env.Cleanup()

	t.Run("missing question", func(t *testing.T) {
		resp, err := env.Chat(map[string]string{"sessionId": "e2e"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, 0, env.Fetches())
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := env.do(http.MethodGet, "/chat", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("provider failure", func(t *testing.T) {
		env.Completion.Fail(http.StatusServiceUnavailable)
		resp, err := env.Chat(map[string]string{"question": "How do I connect Swish?"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "the assistant is temporarily unavailable", resp.Error)
	})
}

// TestE2E_StaleKnowledge keeps answering from the last good snapshot while
// the source is down.
func TestE2E_StaleKnowledge(t *testing.T) {
	env := SetupE2EEnv(t, 50*time.Millisecond)
	defer env.Cleanup()

	resp, err := env.Chat(map[string]string{"question": "How do I connect Swish?"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.SetSourceDown(true)
	time.Sleep(100 * time.Millisecond)

	resp, err = env.Chat(map[string]string{"question": "How do I connect Swish?"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Greater(t, env.Fetches(), 1)

	requests := env.Completion.Requests()
	require.Len(t, requests, 2)
	assert.Contains(t, requests[1].Messages[0].Content, "### Connect Swish")
}

// TestE2E_CLI drives the built binary.
func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t, time.Minute)
	defer env.Cleanup()
	env.BuildBinaries()

	t.Run("chunks", func(t *testing.T) {
		out, err := env.RunSupportbot("chunks", "--json")
		require.NoError(t, err)

		var rows []struct {
			Title string `json:"title"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "Refunds", rows[1].Title)
	})

	t.Run("ask", func(t *testing.T) {
		out, err := env.RunSupportbot("ask", "--show-sections", "How do I connect Swish?")
		require.NoError(t, err)
		assert.Contains(t, out, "grounding: ranked")
		assert.Contains(t, out, "- Connect Swish")
		assert.Contains(t, out, contactFooter)
	})

	t.Run("help-json", func(t *testing.T) {
		out, err := env.RunSupportbot("--help-json")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "supportbotd"`)
	})
}
