package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnowledgeChunk_RenderedText(t *testing.T) {
	chunk := KnowledgeChunk{Title: "Connect Swish", Content: "Step 1\nStep 2"}
	assert.Equal(t, "### Connect Swish\nStep 1\nStep 2", chunk.RenderedText())
}

func TestKnowledgeChunk_RenderedText_EmptyContent(t *testing.T) {
	chunk := KnowledgeChunk{Title: "Orphan"}
	assert.Equal(t, "### Orphan\n", chunk.RenderedText())
}

func TestKnowledgeChunk_IsEmpty(t *testing.T) {
	assert.True(t, KnowledgeChunk{}.IsEmpty())
	assert.False(t, KnowledgeChunk{Title: "t"}.IsEmpty())
	assert.False(t, KnowledgeChunk{Content: "c"}.IsEmpty())
}

func TestNewTurns(t *testing.T) {
	assert.Equal(t, ConversationTurn{Role: RoleUser, Content: "hi"}, NewUserTurn("hi"))
	assert.Equal(t, ConversationTurn{Role: RoleAssistant, Content: "hello"}, NewAssistantTurn("hello"))
}
