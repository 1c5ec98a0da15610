package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/pior/riakpb/pbc"
)

// ContentTypeJSON is the content type decoded as a JSON document.
const ContentTypeJSON = "application/json"

// ParseValue converts an object value according to its content type:
//   - application/json: decoded JSON document
//   - text/*: string
//   - no content type, or an empty value: string
//   - anything else: the raw bytes, unmodified
func ParseValue(contentType string, value []byte) (any, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	if contentType == "" || len(value) == 0 {
		return string(value), nil
	}

	// Parameters such as "; charset=utf-8" do not change the decoding
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	switch {
	case contentType == ContentTypeJSON:
		var doc any
		if err := json.Unmarshal(value, &doc); err != nil {
			return nil, fmt.Errorf("schema: invalid JSON value: %w", err)
		}
		return doc, nil
	case strings.HasPrefix(contentType, "text/"):
		return string(value), nil
	default:
		return value, nil
	}
}

// ParseContent returns a copy of body where the value of every object in the
// "content" field is converted with ParseValue. Get and Put replies carry
// their siblings there.
func ParseContent(body pbc.Body) (pbc.Body, error) {
	list, ok := body["content"].([]any)
	if !ok {
		return body, nil
	}

	parsed := make([]any, len(list))
	for i, item := range list {
		content, ok := item.(pbc.Body)
		if !ok {
			parsed[i] = item
			continue
		}

		value, ok := content["value"].([]byte)
		if !ok {
			parsed[i] = content
			continue
		}

		contentType, _ := content["content_type"].(string)
		v, err := ParseValue(contentType, value)
		if err != nil {
			return nil, fmt.Errorf("content[%d]: %w", i, err)
		}

		out := maps.Clone(content)
		out["value"] = v
		parsed[i] = out
	}

	out := maps.Clone(body)
	out["content"] = parsed
	return out, nil
}
