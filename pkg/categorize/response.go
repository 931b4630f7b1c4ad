package categorize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dtnitsch/bookmark-organizer/models"
)

// Validation failure reasons carried by ResponseError.
const (
	ReasonNotJSON       = "not_json"
	ReasonNotObject     = "not_object"
	ReasonMalformedItem = "malformed_item"
)

// ResponseError reports a model reply that violates the structural
// contract: one JSON object mapping category names to {title, url} lists.
type ResponseError struct {
	Reason   string
	Category string
	Item     string
}

func (e *ResponseError) Error() string {
	switch e.Reason {
	case ReasonMalformedItem:
		return fmt.Sprintf("invalid response (%s): category %q item %s", e.Reason, e.Category, e.Item)
	default:
		return fmt.Sprintf("invalid response (%s)", e.Reason)
	}
}

// ParseResponse validates raw model output into a CategoryMap. At most one
// code-fence wrapper is stripped from each side before decoding. Category
// order follows key order in the reply. An empty object is valid and
// yields an empty map; the caller decides what that means.
func ParseResponse(raw string) (*models.CategoryMap, error) {
	text := stripFences(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		var anything any
		if json.Unmarshal([]byte(text), &anything) != nil {
			return nil, &ResponseError{Reason: ReasonNotJSON}
		}
		return nil, &ResponseError{Reason: ReasonNotObject}
	}

	keys, err := objectKeys(text)
	if err != nil {
		return nil, &ResponseError{Reason: ReasonNotJSON}
	}

	out := models.NewCategoryMap()
	for _, key := range keys {
		var items []json.RawMessage
		if err := json.Unmarshal(top[key], &items); err != nil {
			return nil, &ResponseError{Reason: ReasonNotObject, Category: key}
		}
		refs := make([]models.Ref, 0, len(items))
		for _, item := range items {
			ref, err := parseItem(item)
			if err != nil {
				return nil, &ResponseError{Reason: ReasonMalformedItem, Category: key, Item: string(item)}
			}
			refs = append(refs, ref)
		}
		out.Append(key, refs...)
	}
	return out, nil
}

// parseItem requires an object carrying at least a title key and a
// non-empty url key. Anything else the model tacked on is ignored.
func parseItem(raw json.RawMessage) (models.Ref, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Ref{}, err
	}

	titleRaw, ok := fields["title"]
	if !ok {
		return models.Ref{}, fmt.Errorf("missing title")
	}
	urlRaw, ok := fields["url"]
	if !ok {
		return models.Ref{}, fmt.Errorf("missing url")
	}

	var ref models.Ref
	if err := json.Unmarshal(titleRaw, &ref.Title); err != nil {
		return models.Ref{}, err
	}
	if err := json.Unmarshal(urlRaw, &ref.URL); err != nil {
		return models.Ref{}, err
	}
	if ref.URL == "" {
		return models.Ref{}, fmt.Errorf("empty url")
	}
	return ref, nil
}

// objectKeys returns the top-level keys of a JSON object in source order.
// Unmarshal into a Go map loses ordering, so the keys are re-read with a
// token scan.
func objectKeys(text string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not an object")
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string key")
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// stripFences removes at most one markdown code-fence wrapper from each
// side of the text. Models wrap JSON in fences no matter how firmly the
// prompt forbids it.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```json")
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-3]
	}
	return strings.TrimSpace(text)
}

// skipValue consumes one JSON value from the decoder, nesting included.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
