package chunker

type ChunkOptions struct {
	MaxTokens       int
	OverlapTokens   int  // trailing context repeated at the start of the next split piece
	PreserveHeaders bool // repeat the section header on every split piece
}

// a retrievable piece of a markdown document
type Chunk struct {
	ID       string
	DocURI   string
	Section  string
	Content  string
	Metadata map[string]any
}

type Section struct {
	Title   string
	Level   int
	Content string
}
