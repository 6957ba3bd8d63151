package harvester

import (
	"encoding/json"
	"fmt"
	"strings"

	"biorag/internal/domain"
)

// Normalize flattens one catalog tool object into a ToolRecord.
//
// The identity key is biotoolsID, falling back to name. Topics come from
// topic[].term and operations from function[].operation[].term; entries of the
// wrong shape are ignored rather than failing the record. A record without an
// identity key or a description fails with domain.ErrParse.
func Normalize(raw json.RawMessage) (domain.ToolRecord, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.ToolRecord{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	name := str(obj["name"])
	id := str(obj["biotoolsID"])
	if id == "" {
		id = name
	}
	if name == "" {
		name = id
	}
	rec := domain.ToolRecord{
		IdentityKey: id,
		Name:        name,
		Description: str(obj["description"]),
		Homepage:    str(obj["homepage"]),
		Languages:   strs(obj["language"]),
		Topics:      terms(obj["topic"]),
		Operations:  operations(obj["function"]),
	}
	if err := rec.Validate(); err != nil {
		return domain.ToolRecord{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return rec, nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func strs(v any) []string {
	out := []string{}
	items, _ := v.([]any)
	for _, item := range items {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func terms(v any) []string {
	out := []string{}
	items, _ := v.([]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t := str(m["term"]); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func operations(v any) []string {
	out := []string{}
	funcs, _ := v.([]any)
	for _, f := range funcs {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, terms(m["operation"])...)
	}
	return out
}
