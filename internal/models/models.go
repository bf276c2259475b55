package models

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Segment is a unit of text extracted from a source, immutable once produced.
// Page is 1-based and carries whatever "logical page" the source has (PDF page,
// sheet number, ...); sources without pages use 1.
type Segment struct {
	Content string
	Source  string
	Page    int
}

// Chunk is a bounded-length slice of segment text, the unit stored in and
// retrieved from the vector index. Seq is the chunk's position across the
// whole source.
type Chunk struct {
	ID      string
	Content string
	Source  string
	Page    int
	Seq     int
}

// Provenance says where an answer came from.
type Provenance string

const (
	ProvenanceContext Provenance = "context"
	ProvenanceGeneral Provenance = "general"
	ProvenanceUnknown Provenance = "unknown"
)

// Answer is the structured result of a generation run. Citations is non-empty
// only when Provenance is ProvenanceContext.
type Answer struct {
	Text       string
	Provenance Provenance
	Citations  []Chunk
}

// Turn is one element of the chat history. Assistant turns carry the chunks
// that grounded them; user turns never have citations.
type Turn struct {
	Role      Role
	Content   string
	Citations []Chunk
}
