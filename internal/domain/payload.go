package domain

import "fmt"

// Payload field names stored alongside each vector.
const (
	FieldIdentityKey = "identity_key"
	FieldName        = "name"
	FieldDescription = "description"
	FieldHomepage    = "homepage"
	FieldLanguages   = "languages"
	FieldTopics      = "topics"
	FieldOperations  = "operations"
)

// Payload flattens a record into the map a vector store persists.
func (r ToolRecord) Payload() map[string]any {
	return map[string]any{
		FieldIdentityKey: r.IdentityKey,
		FieldName:        r.Name,
		FieldDescription: r.Description,
		FieldHomepage:    r.Homepage,
		FieldLanguages:   nonNil(r.Languages),
		FieldTopics:      nonNil(r.Topics),
		FieldOperations:  nonNil(r.Operations),
	}
}

// RecordFromPayload rebuilds a record from a stored payload. Entries that do
// not carry an identity key and a description are rejected.
func RecordFromPayload(p map[string]any) (ToolRecord, error) {
	r := ToolRecord{
		IdentityKey: stringField(p, FieldIdentityKey),
		Name:        stringField(p, FieldName),
		Description: stringField(p, FieldDescription),
		Homepage:    stringField(p, FieldHomepage),
		Languages:   stringsField(p, FieldLanguages),
		Topics:      stringsField(p, FieldTopics),
		Operations:  stringsField(p, FieldOperations),
	}
	if err := r.Validate(); err != nil {
		return ToolRecord{}, fmt.Errorf("payload: %w", err)
	}
	return r, nil
}

// Retrieved converts a search hit into the synthesis view.
func (p ScoredPoint) Retrieved() RetrievedTool {
	return RetrievedTool{
		Name:        p.Record.DisplayName(),
		Description: p.Record.Description,
		URL:         p.Record.Homepage,
		Score:       p.Score,
	}
}

func stringField(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func stringsField(p map[string]any, key string) []string {
	out := []string{}
	switch v := p[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
