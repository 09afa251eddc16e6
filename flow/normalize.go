package flow

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/artisanhub/craft-ai-bridge/llm"
	"github.com/artisanhub/craft-ai-bridge/types"
)

// normalizeText maps a structured-output model turn onto the flow's
// contract. Absence and schema mismatch both mean the provider gave us
// nothing usable, reported with the flow's own message.
func normalizeText(def *Definition, content string) (json.RawMessage, error) {
	doc := stripFences(strings.TrimSpace(content))
	if doc == "" || doc == "null" {
		return nil, &Error{Kind: KindEmptyOutput, Flow: def.Name, Message: def.EmptyMessage, Err: llm.ErrEmptyResponse}
	}
	raw := json.RawMessage(doc)
	if err := def.Contract.ValidateOutput(raw); err != nil {
		return nil, &Error{Kind: KindEmptyOutput, Flow: def.Name, Message: def.EmptyMessage, Err: err}
	}
	return raw, nil
}

// normalizeImage extracts the single media locator from an image
// response. It only checks for existence; the data URI's payload is
// passed through opaque.
func normalizeImage(def *Definition, media types.Media) (json.RawMessage, error) {
	if len(media.Data) == 0 {
		return nil, &Error{Kind: KindEmptyOutput, Flow: def.Name, Message: def.EmptyMessage, Err: llm.ErrEmptyResponse}
	}
	mime := media.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(media.Data)
	out, err := json.Marshal(ProductImage{ImageDataURI: uri})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeDialogue wraps a dialogue flow's final answer text in the
// contract's single answer field.
func normalizeDialogue(def *Definition, answer string) (json.RawMessage, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, &Error{Kind: KindEmptyOutput, Flow: def.Name, Message: def.EmptyMessage, Err: llm.ErrEmptyResponse}
	}
	out, err := json.Marshal(QueryAnswer{Answer: answer})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stripFences removes a markdown code fence around a JSON document.
// JSON-mode models occasionally wrap output despite instructions.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
