// Package llm defines the language-model contract shared by the classifier,
// the folder summarizer and the morning digest. Providers live under
// internal/integrations.
package llm

import (
	"context"
	"encoding/json"
)

// Request is a single-shot generation. When Schema is set the provider must
// use its strict structured-output mode and return JSON matching it.
type Request struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     json.RawMessage
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Transcriber turns a voice note into text. filename carries the container
// format (e.g. voice.oga).
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Provider interface {
	Generator
	Transcriber
}
