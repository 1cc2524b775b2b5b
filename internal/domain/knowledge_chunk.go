package domain

// KnowledgeChunk is one titled section of the knowledge source. Its identity
// is its index in the parsed sequence.
type KnowledgeChunk struct {
	Title   string
	Content string
}

// RenderedText returns the chunk as it is shown to the completion model.
func (c KnowledgeChunk) RenderedText() string {
	return "### " + c.Title + "\n" + c.Content
}

// IsEmpty reports whether both title and content are blank.
func (c KnowledgeChunk) IsEmpty() bool {
	return c.Title == "" && c.Content == ""
}

// ScoredChunk pairs a chunk with its relevance score for a single query.
type ScoredChunk struct {
	Chunk KnowledgeChunk
	Score int
	Index int
}
