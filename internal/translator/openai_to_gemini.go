package translator

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"geminicli2api/internal/models"
)

// OpenAIRequestToGemini converts an OpenAI chat completion request to the
// Gemini request payload. Pure; callers on the hot path invoke it
// concurrently without coordination.
func OpenAIRequestToGemini(rawJSON []byte) ([]byte, error) {
	model := gjson.GetBytes(rawJSON, "model").String()
	variant := models.Parse(model)

	payload := map[string]interface{}{
		"contents":         translateMessages(rawJSON),
		"generationConfig": translateGenerationConfig(rawJSON, variant),
		"safetySettings":   defaultSafetySettings,
		"model":            variant.BaseName,
	}
	if variant.Search {
		payload["tools"] = []interface{}{
			map[string]interface{}{"googleSearch": map[string]interface{}{}},
		}
	}
	return json.Marshal(payload)
}

// translateMessages maps OpenAI messages onto Gemini contents. System
// messages become user turns; the upstream API has no separate system role
// in this surface.
func translateMessages(rawJSON []byte) []interface{} {
	contents := []interface{}{}
	gjson.GetBytes(rawJSON, "messages").ForEach(func(_, msg gjson.Result) bool {
		role := msg.Get("role").String()
		switch role {
		case "assistant":
			role = "model"
		case "system":
			role = "user"
		}

		content := msg.Get("content")
		var parts []interface{}
		if content.IsArray() {
			content.ForEach(func(_, part gjson.Result) bool {
				if p := convertContentPart(part); p != nil {
					parts = append(parts, p)
				}
				return true
			})
		} else {
			parts = []interface{}{
				map[string]interface{}{"text": content.String()},
			}
		}
		contents = append(contents, map[string]interface{}{
			"role":  role,
			"parts": parts,
		})
		return true
	})
	return contents
}

// convertContentPart maps one structured content part. Malformed image URLs
// are dropped (nil) rather than failing the whole message.
func convertContentPart(part gjson.Result) interface{} {
	switch part.Get("type").String() {
	case "text":
		return map[string]interface{}{"text": part.Get("text").String()}
	case "image_url":
		url := part.Get("image_url.url").String()
		mimeType, data, ok := parseDataURI(url)
		if !ok {
			return nil
		}
		return map[string]interface{}{
			"inlineData": map[string]interface{}{
				"mimeType": mimeType,
				"data":     data,
			},
		}
	default:
		return nil
	}
}

// parseDataURI splits a data: URI of the exact form
// "data:image/png;base64,AAAA" into its MIME type and base64 payload. Extra
// metadata segments are rejected, not skipped over.
func parseDataURI(uri string) (mimeType, data string, ok bool) {
	rest, found := strings.CutPrefix(uri, "data:")
	if !found {
		return "", "", false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mimeType, encoding, found := strings.Cut(meta, ";")
	if !found || encoding != "base64" {
		return "", "", false
	}
	return mimeType, payload, true
}

// translateGenerationConfig maps OpenAI sampling parameters onto Gemini's
// generationConfig. Absent fields stay absent; upstream applies its own
// defaults.
func translateGenerationConfig(rawJSON []byte, variant models.Variant) map[string]interface{} {
	cfg := map[string]interface{}{}
	req := gjson.ParseBytes(rawJSON)

	if v := req.Get("temperature"); v.Exists() {
		cfg["temperature"] = v.Float()
	}
	if v := req.Get("top_p"); v.Exists() {
		cfg["topP"] = v.Float()
	}
	if v := req.Get("max_tokens"); v.Exists() {
		cfg["maxOutputTokens"] = v.Int()
	}
	if v := req.Get("stop"); v.Exists() {
		if v.IsArray() {
			var stops []interface{}
			v.ForEach(func(_, s gjson.Result) bool {
				stops = append(stops, s.String())
				return true
			})
			cfg["stopSequences"] = stops
		} else {
			cfg["stopSequences"] = []interface{}{v.String()}
		}
	}
	if v := req.Get("frequency_penalty"); v.Exists() {
		cfg["frequencyPenalty"] = v.Float()
	}
	if v := req.Get("presence_penalty"); v.Exists() {
		cfg["presencePenalty"] = v.Float()
	}
	if v := req.Get("n"); v.Exists() {
		cfg["candidateCount"] = v.Int()
	}
	if v := req.Get("seed"); v.Exists() {
		cfg["seed"] = v.Int()
	}
	if req.Get("response_format.type").String() == "json_object" {
		cfg["responseMimeType"] = "application/json"
	}
	if variant.Thinking != nil {
		cfg["thinkingConfig"] = map[string]interface{}{
			"thinkingBudget":  variant.Thinking.Budget,
			"includeThoughts": variant.Thinking.IncludeThoughts,
		}
	}
	return cfg
}
