package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finansage/finansage/internal/insight"
)

// chatServer answers every completion with content and records the request body.
func chatServer(t *testing.T, status int, content string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestGenerator(t *testing.T, srv *httptest.Server) *Generator {
	t.Helper()
	g, err := New("sk-test", srv.URL+"/v1/", "")
	require.NoError(t, err)
	return g
}

func TestGenerate_Text(t *testing.T) {
	srv, got := chatServer(t, http.StatusOK, "  Hello  ")
	out, err := newTestGenerator(t, srv).Generate(context.Background(), insight.Request{System: "sys", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)

	body := *got
	assert.Equal(t, DefaultModel, body["model"])
	assert.Nil(t, body["response_format"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hi", msgs[1].(map[string]any)["content"])
}

func TestGenerate_SchemaAndImage(t *testing.T) {
	srv, got := chatServer(t, http.StatusOK, `{"category":null}`)
	out, err := newTestGenerator(t, srv).Generate(context.Background(), insight.Request{
		Prompt: "look",
		Images: []insight.Image{{MIMEType: "image/jpeg", Data: []byte("img")}},
		Schema: &insight.Schema{
			Kind: insight.KindObject,
			Properties: map[string]*insight.Schema{
				"category": {Kind: insight.KindString, Enum: []string{"Dining"}, Nullable: true},
				"merchant": {Kind: insight.KindString},
				"note":     {Kind: insight.KindString},
			},
			Required: []string{"category", "merchant"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"category":null}`, out)

	body := *got
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]any)
	assert.Equal(t, true, jsonSchema["strict"])
	schema := jsonSchema["schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []any{"category", "merchant", "note"}, schema["required"])

	props := schema["properties"].(map[string]any)
	cat := props["category"].(map[string]any)
	assert.Equal(t, []any{"string", "null"}, cat["type"])
	assert.Equal(t, []any{"Dining", nil}, cat["enum"])
	assert.NotContains(t, cat, "nullable")
	assert.Equal(t, "string", props["merchant"].(map[string]any)["type"])
	assert.Equal(t, []any{"string", "null"}, props["note"].(map[string]any)["type"], "optional fields become nullable")

	msg := body["messages"].([]any)[0].(map[string]any)
	parts := msg["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,aW1n", img["url"])
}

func TestGenerate_ArrayRootIsWrapped(t *testing.T) {
	srv, got := chatServer(t, http.StatusOK, `{"result":[{"name":"Netflix"}]}`)
	out, err := newTestGenerator(t, srv).Generate(context.Background(), insight.Request{
		Prompt: "find",
		Schema: &insight.Schema{Kind: insight.KindArray, Items: &insight.Schema{
			Kind:       insight.KindObject,
			Properties: map[string]*insight.Schema{"name": {Kind: insight.KindString}},
		}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Netflix"}]`, out)

	schema := (*got)["response_format"].(map[string]any)["json_schema"].(map[string]any)["schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	inner := schema["properties"].(map[string]any)["result"].(map[string]any)
	assert.Equal(t, "array", inner["type"])
	item := inner["items"].(map[string]any)
	assert.Equal(t, []any{"name"}, item["required"])
	assert.Equal(t, false, item["additionalProperties"])
}

func TestGenerate_Errors(t *testing.T) {
	srv, _ := chatServer(t, http.StatusTooManyRequests, "")
	_, err := newTestGenerator(t, srv).Generate(context.Background(), insight.Request{Prompt: "x"})
	assert.ErrorContains(t, err, "openai:")

	srv, _ = chatServer(t, http.StatusOK, "")
	_, err = newTestGenerator(t, srv).Generate(context.Background(), insight.Request{Prompt: "x"})
	assert.ErrorContains(t, err, "empty response")

	srv, _ = chatServer(t, http.StatusOK, `{"other":1}`)
	_, err = newTestGenerator(t, srv).Generate(context.Background(), insight.Request{Prompt: "x", Schema: &insight.Schema{Kind: insight.KindArray}})
	assert.ErrorContains(t, err, `no "result" field`)
}

func TestNew_NeedsKey(t *testing.T) {
	_, err := New("", "", "")
	assert.ErrorContains(t, err, "missing API key")
}
