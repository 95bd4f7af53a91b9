/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: openai.go
Description: Advisor backed by an OpenAI-compatible chat completions endpoint. The model
is asked for modern field names and descriptions as JSON; anything else it says is
ignored.
*/

package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kleascm/as400-modernizer/pkg/core"
)

// Endpoint defaults
const (
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultModel    = "gpt-4o-mini"
)

const systemPrompt = "You document legacy AS/400 record layouts. For each field, propose a " +
	"camelCase name and a one sentence description. Never change types or keys. Reply with " +
	`JSON only: {"fields":[{"ordinal":1,"field":"NAME","suggested_name":"name","description":"...","confidence":0.0}]}`

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIAdvisor asks a chat completions endpoint for annotations
type OpenAIAdvisor struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
}

// NewOpenAIAdvisor creates an advisor from options
func NewOpenAIAdvisor(opts Options) (*OpenAIAdvisor, error) {
	opts = opts.withDefaults()
	if opts.APIKey == "" {
		return nil, fmt.Errorf("overlay: API key is required for the %s provider", ProviderOpenAI)
	}
	return &OpenAIAdvisor{
		client:      &http.Client{Timeout: opts.Timeout},
		endpoint:    opts.Endpoint,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
	}, nil
}

// Name implements Advisor
func (a *OpenAIAdvisor) Name() string {
	return ProviderOpenAI + ":" + a.model
}

// Advise implements Advisor
func (a *OpenAIAdvisor) Advise(ctx context.Context, entity *core.EntitySchema) (*AnnotationSet, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: describeEntity(entity)},
		},
		Temperature:    a.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor returned status %d: %s", resp.StatusCode, core.Excerpt(string(raw)))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("advisor error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("advisor returned no choices")
	}

	set, err := decodeAnnotations(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	set.Entity = entity.Name
	set.Source = a.Name()
	return set, nil
}

// describeEntity renders the layout the model is asked about
func describeEntity(entity *core.EntitySchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity %s (from %s)\n", entity.Name, entity.Source)
	for _, f := range entity.Fields {
		t := "UNTYPED"
		if f.Type != nil {
			t = f.Type.String()
		}
		fmt.Fprintf(&b, "%d. %s %s", f.Ordinal, f.Name, t)
		if f.Description != "" {
			fmt.Fprintf(&b, " %q", f.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// decodeAnnotations pulls the JSON object out of a model reply, tolerating code fences
// and surrounding prose
func decodeAnnotations(content string) (*AnnotationSet, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("advisor reply holds no JSON object: %s", core.Excerpt(content))
	}
	set := &AnnotationSet{}
	if err := json.Unmarshal([]byte(content[start:end+1]), set); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	return set, nil
}
