package translator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func toGemini(t *testing.T, openaiJSON string) gjson.Result {
	t.Helper()
	out, err := OpenAIRequestToGemini([]byte(openaiJSON))
	require.NoError(t, err)
	return gjson.ParseBytes(out)
}

func TestRequestRoleMapping(t *testing.T) {
	req := toGemini(t, `{
		"model": "gemini-2.5-pro",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
			{"role": "tool", "content": "x"}
		]
	}`)

	contents := req.Get("contents").Array()
	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Get("role").String())
	assert.Equal(t, "user", contents[1].Get("role").String())
	assert.Equal(t, "model", contents[2].Get("role").String())
	assert.Equal(t, "tool", contents[3].Get("role").String(), "unknown roles pass through")
	assert.Equal(t, "be brief", contents[0].Get("parts.0.text").String())
}

func TestRequestImageParts(t *testing.T) {
	req := toGemini(t, `{
		"model": "gemini-2.5-pro",
		"messages": [{
			"role": "user",
			"content": [
				{"type": "text", "text": "what is this"},
				{"type": "image_url", "image_url": {"url": "data:image/png;base64,AAAA"}},
				{"type": "image_url", "image_url": {"url": "not-a-data-uri"}}
			]
		}]
	}`)

	parts := req.Get("contents.0.parts").Array()
	// The malformed image was dropped without failing the message.
	require.Len(t, parts, 2)
	assert.Equal(t, "what is this", parts[0].Get("text").String())
	assert.Equal(t, "image/png", parts[1].Get("inlineData.mimeType").String())
	assert.Equal(t, "AAAA", parts[1].Get("inlineData.data").String())
}

func TestRequestGenerationConfigFieldPresence(t *testing.T) {
	req := toGemini(t, `{
		"model": "gemini-2.5-pro",
		"messages": [{"role": "user", "content": "hi"}],
		"temperature": 0.7,
		"top_p": 0.9,
		"max_tokens": 256,
		"frequency_penalty": 0.5,
		"presence_penalty": -0.5,
		"n": 2,
		"seed": 42,
		"response_format": {"type": "json_object"}
	}`)

	cfg := req.Get("generationConfig")
	assert.Equal(t, 0.7, cfg.Get("temperature").Float())
	assert.Equal(t, 0.9, cfg.Get("topP").Float())
	assert.Equal(t, int64(256), cfg.Get("maxOutputTokens").Int())
	assert.Equal(t, 0.5, cfg.Get("frequencyPenalty").Float())
	assert.Equal(t, -0.5, cfg.Get("presencePenalty").Float())
	assert.Equal(t, int64(2), cfg.Get("candidateCount").Int())
	assert.Equal(t, int64(42), cfg.Get("seed").Int())
	assert.Equal(t, "application/json", cfg.Get("responseMimeType").String())
}

func TestRequestGenerationConfigOmitsAbsentFields(t *testing.T) {
	req := toGemini(t, `{
		"model": "gemini-2.5-pro",
		"messages": [{"role": "user", "content": "hi"}]
	}`)

	cfg := req.Get("generationConfig")
	require.True(t, cfg.Exists())
	assert.False(t, cfg.Get("temperature").Exists())
	assert.False(t, cfg.Get("topP").Exists())
	assert.False(t, cfg.Get("maxOutputTokens").Exists())
	assert.False(t, cfg.Get("candidateCount").Exists())
	assert.False(t, cfg.Get("responseMimeType").Exists())
}

func TestRequestStopSequences(t *testing.T) {
	single := toGemini(t, `{"model":"gemini-2.5-pro","messages":[],"stop":"END"}`)
	assert.Equal(t, `["END"]`, single.Get("generationConfig.stopSequences").Raw)

	multi := toGemini(t, `{"model":"gemini-2.5-pro","messages":[],"stop":["a","b"]}`)
	assert.Equal(t, `["a","b"]`, multi.Get("generationConfig.stopSequences").Raw)
}

func TestRequestModelVariants(t *testing.T) {
	search := toGemini(t, `{"model":"gemini-2.5-pro-search","messages":[]}`)
	assert.Equal(t, "gemini-2.5-pro", search.Get("model").String())
	assert.True(t, search.Get("tools.0.googleSearch").Exists())

	maxThinking := toGemini(t, `{"model":"gemini-2.5-flash-maxthinking","messages":[]}`)
	assert.Equal(t, "gemini-2.5-flash", maxThinking.Get("model").String())
	assert.Equal(t, int64(24576), maxThinking.Get("generationConfig.thinkingConfig.thinkingBudget").Int())
	assert.True(t, maxThinking.Get("generationConfig.thinkingConfig.includeThoughts").Bool())

	noThinking := toGemini(t, `{"model":"gemini-2.5-pro-nothinking","messages":[]}`)
	assert.Equal(t, int64(0), noThinking.Get("generationConfig.thinkingConfig.thinkingBudget").Int())
	assert.False(t, noThinking.Get("generationConfig.thinkingConfig.includeThoughts").Bool())

	plain := toGemini(t, `{"model":"gemini-2.5-pro","messages":[]}`)
	assert.False(t, plain.Get("generationConfig.thinkingConfig").Exists())
	assert.False(t, plain.Get("tools").Exists())
}

func TestRequestSafetySettingsAlwaysAttached(t *testing.T) {
	req := toGemini(t, `{"model":"gemini-2.5-pro","messages":[]}`)
	settings := req.Get("safetySettings").Array()
	require.NotEmpty(t, settings)
	for _, s := range settings {
		assert.Equal(t, "BLOCK_NONE", s.Get("threshold").String())
	}
}

func TestResponseEnvelopeAndContentSplit(t *testing.T) {
	geminiResp := `{
		"candidates": [{
			"index": 0,
			"content": {
				"role": "model",
				"parts": [
					{"text": "let me think", "thought": true},
					{"text": "Hello"},
					{"text": " world"}
				]
			},
			"finishReason": "STOP"
		}]
	}`
	out, err := GeminiResponseToOpenAI([]byte(geminiResp), "gemini-2.5-pro-maxthinking")
	require.NoError(t, err)
	resp := gjson.ParseBytes(out)

	assert.Equal(t, "chat.completion", resp.Get("object").String())
	assert.NotEmpty(t, resp.Get("id").String())
	assert.Equal(t, "gemini-2.5-pro-maxthinking", resp.Get("model").String())
	assert.Greater(t, resp.Get("created").Int(), int64(0))

	choice := resp.Get("choices.0")
	assert.Equal(t, "assistant", choice.Get("message.role").String())
	assert.Equal(t, "Hello world", choice.Get("message.content").String())
	assert.Equal(t, "let me think", choice.Get("message.reasoning_content").String())
	assert.Equal(t, "stop", choice.Get("finish_reason").String())
}

func TestResponseOmitsEmptyReasoning(t *testing.T) {
	geminiResp := `{"candidates":[{"content":{"role":"model","parts":[{"text":"hi"}]},"finishReason":"STOP"}]}`
	out, err := GeminiResponseToOpenAI([]byte(geminiResp), "gemini-2.5-pro")
	require.NoError(t, err)

	msg := gjson.GetBytes(out, "choices.0.message")
	assert.True(t, msg.Get("content").Exists())
	assert.False(t, msg.Get("reasoning_content").Exists())
}

func TestFinishReasonMappingIsExhaustive(t *testing.T) {
	tests := []struct {
		gemini string
		want   interface{}
	}{
		{"STOP", "stop"},
		{"MAX_TOKENS", "length"},
		{"SAFETY", "content_filter"},
		{"RECITATION", "content_filter"},
		{"OTHER", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run("reason "+tt.gemini, func(t *testing.T) {
			geminiResp := `{"candidates":[{"content":{"parts":[{"text":"x"}]},"finishReason":"` + tt.gemini + `"}]}`
			out, err := GeminiResponseToOpenAI([]byte(geminiResp), "gemini-2.5-pro")
			require.NoError(t, err)

			fr := gjson.GetBytes(out, "choices.0.finish_reason")
			if tt.want == nil {
				assert.Equal(t, gjson.Null, fr.Type, "raw %s", fr.Raw)
			} else {
				assert.Equal(t, tt.want, fr.String())
			}
		})
	}
}

func TestStreamChunksShareIDAndOmitEmptyDelta(t *testing.T) {
	id := NewResponseID()

	chunk1, err := GeminiChunkToOpenAI([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hel"}]}}]}`), "gemini-2.5-pro", id)
	require.NoError(t, err)
	chunk2, err := GeminiChunkToOpenAI([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`), "gemini-2.5-pro", id)
	require.NoError(t, err)

	c1 := gjson.ParseBytes(chunk1)
	c2 := gjson.ParseBytes(chunk2)
	assert.Equal(t, id, c1.Get("id").String())
	assert.Equal(t, id, c2.Get("id").String())
	assert.Equal(t, "chat.completion.chunk", c1.Get("object").String())

	assert.Equal(t, "Hel", c1.Get("choices.0.delta.content").String())
	// The final chunk carries no content at all, not an empty string.
	assert.False(t, c2.Get("choices.0.delta.content").Exists())
	assert.False(t, c2.Get("choices.0.delta.reasoning_content").Exists())
	assert.Equal(t, "stop", c2.Get("choices.0.finish_reason").String())
}

func TestStreamConcatenationMatchesFullResponse(t *testing.T) {
	parts := []string{"Hello", ", ", "streaming", " world"}

	// Full response with the same part sequence.
	full := `{"candidates":[{"content":{"role":"model","parts":[` +
		`{"text":"Hello"},{"text":", "},{"text":"streaming"},{"text":" world"}` +
		`]},"finishReason":"STOP"}]}`
	fullOut, err := GeminiResponseToOpenAI([]byte(full), "gemini-2.5-pro")
	require.NoError(t, err)
	wantContent := gjson.GetBytes(fullOut, "choices.0.message.content").String()

	// One chunk per part.
	id := NewResponseID()
	var got strings.Builder
	for _, p := range parts {
		chunk, err := GeminiChunkToOpenAI([]byte(`{"candidates":[{"content":{"parts":[{"text":"`+p+`"}]}}]}`), "gemini-2.5-pro", id)
		require.NoError(t, err)
		got.WriteString(gjson.GetBytes(chunk, "choices.0.delta.content").String())
	}
	assert.Equal(t, wantContent, got.String())
}

func TestStreamReasoningDelta(t *testing.T) {
	chunk, err := GeminiChunkToOpenAI([]byte(`{"candidates":[{"content":{"parts":[{"text":"thinking...","thought":true}]}}]}`), "gemini-2.5-pro-maxthinking", NewResponseID())
	require.NoError(t, err)

	delta := gjson.GetBytes(chunk, "choices.0.delta")
	assert.Equal(t, "thinking...", delta.Get("reasoning_content").String())
	assert.False(t, delta.Get("content").Exists())
}

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		uri      string
		wantMime string
		wantData string
		wantOK   bool
	}{
		{"data:image/png;base64,AAAA", "image/png", "AAAA", true},
		{"data:image/jpeg;base64,/9j/4A==", "image/jpeg", "/9j/4A==", true},
		{"https://example.com/cat.png", "", "", false},
		{"data:image/png", "", "", false},
		{"data:image/png;charset=utf-8;base64,AAAA", "", "", false},
		{"data:image/png;utf8,AAAA", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		mime, data, ok := parseDataURI(tt.uri)
		assert.Equal(t, tt.wantOK, ok, tt.uri)
		assert.Equal(t, tt.wantMime, mime, tt.uri)
		assert.Equal(t, tt.wantData, data, tt.uri)
	}
}
