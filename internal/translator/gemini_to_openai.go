package translator

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// NewResponseID generates the id shared by every chunk of one streaming
// response.
func NewResponseID() string { return uuid.NewString() }

// GeminiResponseToOpenAI converts a full Gemini response to the OpenAI chat
// completion shape. The model field carries the externally visible name,
// suffixes included.
func GeminiResponseToOpenAI(geminiBody []byte, model string) ([]byte, error) {
	resp := gjson.ParseBytes(geminiBody)

	choices := []interface{}{}
	resp.Get("candidates").ForEach(func(_, candidate gjson.Result) bool {
		content, reasoning := splitCandidateParts(candidate)

		message := map[string]interface{}{
			"role":    mapRole(candidate.Get("content.role").String()),
			"content": content,
		}
		if reasoning != "" {
			message["reasoning_content"] = reasoning
		}
		choices = append(choices, map[string]interface{}{
			"index":         candidate.Get("index").Int(),
			"message":       message,
			"finish_reason": mapFinishReason(candidate.Get("finishReason").String()),
		})
		return true
	})

	return json.Marshal(map[string]interface{}{
		"id":      NewResponseID(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": choices,
	})
}

// GeminiChunkToOpenAI converts one streaming chunk. Empty delta fields are
// omitted entirely so clients concatenating deltas never see phantom empty
// strings.
func GeminiChunkToOpenAI(geminiChunk []byte, model, responseID string) ([]byte, error) {
	chunk := gjson.ParseBytes(geminiChunk)

	choices := []interface{}{}
	chunk.Get("candidates").ForEach(func(_, candidate gjson.Result) bool {
		content, reasoning := splitCandidateParts(candidate)

		delta := map[string]interface{}{}
		if content != "" {
			delta["content"] = content
		}
		if reasoning != "" {
			delta["reasoning_content"] = reasoning
		}
		choices = append(choices, map[string]interface{}{
			"index":         candidate.Get("index").Int(),
			"delta":         delta,
			"finish_reason": mapFinishReason(candidate.Get("finishReason").String()),
		})
		return true
	})

	return json.Marshal(map[string]interface{}{
		"id":      responseID,
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": choices,
	})
}

// splitCandidateParts walks a candidate's parts, accumulating thought parts
// and visible text separately. Order is preserved within each accumulator.
func splitCandidateParts(candidate gjson.Result) (content, reasoning string) {
	var contentBuf, reasoningBuf strings.Builder
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		text := part.Get("text").String()
		if text == "" {
			return true
		}
		if part.Get("thought").Bool() {
			reasoningBuf.WriteString(text)
		} else {
			contentBuf.WriteString(text)
		}
		return true
	})
	return contentBuf.String(), reasoningBuf.String()
}

func mapRole(geminiRole string) string {
	if geminiRole == "model" || geminiRole == "" {
		return "assistant"
	}
	return geminiRole
}

// mapFinishReason returns nil (JSON null) for unknown or absent reasons.
func mapFinishReason(geminiReason string) interface{} {
	switch geminiReason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return nil
	}
}
