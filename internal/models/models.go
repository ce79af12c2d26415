package models

import (
	"fmt"
	"time"
)

// ChunkType tags what kind of textbook content a chunk holds.
type ChunkType string

const (
	ChunkTypeDefinition ChunkType = "definition"
	ChunkTypeQuestion   ChunkType = "question"
	ChunkTypeExample    ChunkType = "example"
	ChunkTypeFormula    ChunkType = "formula"
	ChunkTypeContent    ChunkType = "content"
)

// Chunk is a bounded span of document text used as a retrieval unit.
type Chunk struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Source  string    `json:"source"`
	Chapter string    `json:"chapter"`
	Page    int       `json:"page"`
	Ordinal int       `json:"ordinal"`
	Type    ChunkType `json:"type"`
}

// PageSection is one page of extracted document text before chunking.
type PageSection struct {
	Text    string
	Page    int
	Chapter string
	Source  string
}

// RetrievedChunk pairs a stored chunk with its similarity to a query.
type RetrievedChunk struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float32 `json:"similarity"`
}

// StudentType is the closed set of proficiency profiles.
type StudentType string

const (
	WeakPhysics     StudentType = "weak_physics"
	WeakChemistry   StudentType = "weak_chemistry"
	WeakBiology     StudentType = "weak_biology"
	StrongPhysics   StudentType = "strong_physics"
	StrongChemistry StudentType = "strong_chemistry"
	StrongBiology   StudentType = "strong_biology"
	General         StudentType = "general"
)

// ParseStudentType validates a raw string at the boundary. An empty
// string maps to General.
func ParseStudentType(s string) (StudentType, error) {
	switch StudentType(s) {
	case WeakPhysics, WeakChemistry, WeakBiology,
		StrongPhysics, StrongChemistry, StrongBiology, General:
		return StudentType(s), nil
	case "":
		return General, nil
	default:
		return General, fmt.Errorf("unknown student type %q", s)
	}
}

// StudentProfile is supplied per request and never persisted.
type StudentProfile struct {
	UserType     StudentType `json:"user_type"`
	WeakSubjects []string    `json:"weak_subjects"`
}

// QueryRequest is the input to one pipeline run.
type QueryRequest struct {
	Query     string         `json:"query"`
	Profile   StudentProfile `json:"profile"`
	SessionID string         `json:"session_id"`
}

// Stage names the pipeline states a query moves through.
type Stage string

const (
	StageReceived   Stage = "received"
	StageRetrieving Stage = "retrieving"
	StageAssembling Stage = "assembling"
	StageGenerating Stage = "generating"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// TokenUsage reports generation cost as returned by the backend.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// PipelineResult is the unified outcome of one query. Immutable after
// the orchestrator returns it; Err is set when a stage failed, with
// whatever partial data the earlier stages produced.
type PipelineResult struct {
	Query           string           `json:"query"`
	Answer          string           `json:"answer"`
	Retrieved       []RetrievedChunk `json:"retrieved"`
	MatchedTopics   []string         `json:"matched_topics"`
	Personalized    bool             `json:"personalization_applied"`
	Stages          []StageTiming    `json:"stages"`
	TotalDuration   time.Duration    `json:"total_duration"`
	Usage           TokenUsage       `json:"usage"`
	GenerateRetries int              `json:"generate_retries"`
	Err             error            `json:"-"`
}

// IngestionReport aggregates one knowledge-base initialization run.
type IngestionReport struct {
	DocumentsSeen    int              `json:"documents_seen"`
	DocumentsSkipped int              `json:"documents_skipped"`
	DocumentsRemoved int              `json:"documents_removed"`
	ChunksStored     int              `json:"chunks_stored"`
	Duration         time.Duration    `json:"duration"`
	Errors           []IngestionError `json:"errors,omitempty"`
}
