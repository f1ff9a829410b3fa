package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// ParseJSONResponse extracts a JSON object from model output. It accepts a
// bare object, an object inside a markdown code fence, and an object with
// chatter before or after it. Returns nil when no object can be decoded.
func ParseJSONResponse(text string) map[string]any {
	text = strings.TrimSpace(stripCodeFence(strings.TrimSpace(text)))
	if text == "" {
		return nil
	}

	var result map[string]any
	err := json.Unmarshal([]byte(text), &result)
	if err != nil {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			log.Printf("Model response is not a JSON object: %v", err)
			return nil
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
			log.Printf("Model response is not a JSON object: %v", err)
			return nil
		}
	}
	return result
}

// stripCodeFence returns the body of the first ``` fence in text, or text
// unchanged when there is none.
func stripCodeFence(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.Index(body, "\n"); nl >= 0 {
		body = body[nl+1:] // drop the language tag line
	} else {
		return text
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}
