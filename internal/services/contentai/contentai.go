package contentai

import (
	"context"
)

// CleanResult is the cleaner's output for one transcript.
type CleanResult struct {
	CleanedContent string
	WordCount      int
}

// Insight is one extracted idea before persistence.
type Insight struct {
	Title    string
	Body     string
	Category string
}

// PostDraft is one generated platform post before persistence.
type PostDraft struct {
	Platform string
	Body     string
}

// PlatformSpec tells the generator what to target.
type PlatformSpec struct {
	Name      string
	MaxLength int
}

// Cleaner removes filler and transcription noise from raw spoken-word text.
type Cleaner interface {
	Clean(ctx context.Context, rawTranscript string) (CleanResult, error)
}

// Extractor pulls discrete insights out of a cleaned transcript.
type Extractor interface {
	Extract(ctx context.Context, cleanedTranscript string) ([]Insight, error)
}

// Generator drafts platform posts for one approved insight.
type Generator interface {
	Generate(ctx context.Context, insight Insight, platforms []PlatformSpec) ([]PostDraft, error)
}
