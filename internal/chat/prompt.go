// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat sends assembled paper context and a user question to a
// hosted chat model and returns its answer.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/icite/pkg/types"
)

// ErrEmptyAnswer is returned when the model replies without text.
var ErrEmptyAnswer = errors.New("chat model returned no text")

// answerPromptTmpl wraps the retrieved papers and the question. Each
// paper in the context starts with a "[<identifier>]" header so the model
// can cite it.
var answerPromptTmpl = template.Must(template.New("answer").Parse(`Here's the article:

{{.Context}}

Answer the question using only the papers above. When a statement relies on a paper, cite it by the identifier shown in square brackets, for example [10.48550/arXiv.1706.03762]. If the papers do not contain the answer, say so.

Question: {{.Question}}`))

// RenderPrompt executes the answer prompt template.
func RenderPrompt(contextText, question string) (string, error) {
	var buf bytes.Buffer
	err := answerPromptTmpl.Execute(&buf, struct{ Context, Question string }{
		Context:  contextText,
		Question: question,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Completer answers a question given the assembled paper context.
type Completer interface {
	Answer(ctx context.Context, contextText, question string) (string, error)
}

// Provider names accepted in configuration.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// New builds the chat backend named in cfg.
func New(cfg types.ChatConfig) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat provider %q requires an API key", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic, "":
		return &Anthropic{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens}, nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.MaxTokens, ""), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}
