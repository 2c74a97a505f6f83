// Package openai is the backend for OpenAI and OpenAI-compatible chat completion APIs.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/finansage/finansage/internal/insight"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// wrapKey holds a non-object answer, since response schemas must have an object root.
const wrapKey = "result"

// Generator sends insight requests as chat completions.
type Generator struct {
	client *openai.Client
	model  string
}

// New creates a Generator. baseURL may point at any compatible server; empty means api.openai.com.
func New(apiKey, baseURL, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("openai: missing API key")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Generate implements insight.Generator.
func (g *Generator) Generate(ctx context.Context, req insight.Request) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, userMessage(req))

	creq := openai.ChatCompletionRequest{Model: g.model, Messages: msgs}
	wrapped := false
	if req.Schema != nil {
		root := definition(req.Schema)
		if req.Schema.Kind != insight.KindObject {
			root = jsonschema.Definition{
				Type:                 jsonschema.Object,
				Properties:           map[string]jsonschema.Definition{wrapKey: root},
				Required:             []string{wrapKey},
				AdditionalProperties: false,
			}
			wrapped = true
		}
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "answer",
				Schema: strictSchema{root},
				Strict: true,
			},
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty response")
	}
	if wrapped {
		return unwrap(text)
	}
	return text, nil
}

func userMessage(req insight.Request) openai.ChatCompletionMessage {
	if len(req.Images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt}
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func unwrap(text string) (string, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return "", fmt.Errorf("openai: decoding wrapped answer: %w", err)
	}
	v, ok := env[wrapKey]
	if !ok {
		return "", fmt.Errorf("openai: answer has no %q field", wrapKey)
	}
	return string(v), nil
}

var kinds = map[insight.Kind]jsonschema.DataType{
	insight.KindObject:  jsonschema.Object,
	insight.KindArray:   jsonschema.Array,
	insight.KindString:  jsonschema.String,
	insight.KindNumber:  jsonschema.Number,
	insight.KindInteger: jsonschema.Integer,
	insight.KindBoolean: jsonschema.Boolean,
}

// definition converts a request schema into strict form: every property is
// required, and one the request does not require becomes nullable instead.
func definition(s *insight.Schema) jsonschema.Definition {
	d := jsonschema.Definition{
		Type:        kinds[s.Kind],
		Description: s.Description,
		Enum:        s.Enum,
		Nullable:    s.Nullable,
	}
	if s.Items != nil {
		items := definition(s.Items)
		d.Items = &items
	}
	if s.Kind == insight.KindObject {
		d.AdditionalProperties = false
		d.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
			p := definition(s.Properties[name])
			if !slices.Contains(s.Required, name) {
				p.Nullable = true
			}
			d.Properties[name] = p
			d.Required = append(d.Required, name)
		}
	}
	return d
}

// strictSchema marshals a definition the way strict structured outputs expect
// nullability: type ["T", "null"], with null listed in any enum.
type strictSchema struct {
	def jsonschema.Definition
}

func (s strictSchema) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(&s.def)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(strictNulls(v))
}

func strictNulls(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if props, ok := m["properties"].(map[string]any); ok {
		if m["type"] != string(jsonschema.Object) {
			delete(m, "properties")
		}
		for name, p := range props {
			props[name] = strictNulls(p)
		}
	}
	if items, ok := m["items"]; ok {
		m["items"] = strictNulls(items)
	}
	if m["nullable"] == true {
		delete(m, "nullable")
		m["type"] = []any{m["type"], string(jsonschema.Null)}
		if enum, ok := m["enum"].([]any); ok {
			m["enum"] = append(enum, nil)
		}
	}
	return m
}
