// Package corpusfile reads and writes the JSON checkpoint that sits between a
// harvest and an ingestion run.
//
// The file is an array of {text, metadata} objects. Read also accepts the
// hand-curated {tool_name, description, url} shape, so a short curated list
// can be ingested the same way as a full catalog dump.
package corpusfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"biorag/internal/domain"
)

// Entry is one checkpoint object.
type Entry struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Metadata carries the structured record next to its embedding text.
type Metadata struct {
	Name        string   `json:"name"`
	BiotoolsID  string   `json:"biotools_id"`
	Homepage    string   `json:"homepage"`
	Language    []string `json:"language"`
	Topics      []string `json:"topics"`
	Operations  []string `json:"operations"`
	Description string   `json:"description"`
}

type curated struct {
	ToolName    string `json:"tool_name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Report summarizes a Read.
type Report struct {
	Entries int
	Records int
	Skipped []error
}

// EntryFor converts a record into its checkpoint form.
func EntryFor(r domain.ToolRecord) Entry {
	return Entry{
		Text: r.DisplayName() + ". " + r.Description,
		Metadata: Metadata{
			Name:        r.DisplayName(),
			BiotoolsID:  r.IdentityKey,
			Homepage:    r.Homepage,
			Language:    nonNil(r.Languages),
			Topics:      nonNil(r.Topics),
			Operations:  nonNil(r.Operations),
			Description: r.Description,
		},
	}
}

// Write encodes records as an indented checkpoint array.
func Write(w io.Writer, records []domain.ToolRecord) error {
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = EntryFor(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(entries)
}

// WriteFile writes records to path, creating parent directories.
func WriteFile(path string, records []domain.ToolRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, records); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Read decodes a checkpoint. Entries that cannot form a valid record are
// skipped and listed in the report; only a malformed document is an error.
func Read(r io.Reader) ([]domain.ToolRecord, Report, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, Report{}, fmt.Errorf("%w: checkpoint is not a JSON array: %v", domain.ErrParse, err)
	}
	rep := Report{Entries: len(raw)}
	records := make([]domain.ToolRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := decodeEntry(item)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			rep.Skipped = append(rep.Skipped, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		records = append(records, rec)
	}
	rep.Records = len(records)
	return records, rep, nil
}

// ReadFile reads a checkpoint from disk.
func ReadFile(path string) ([]domain.ToolRecord, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, err
	}
	defer f.Close()
	return Read(f)
}

//go:embed seed.json
var seedJSON []byte

// Seed returns the built-in curated list of widely used tools.
func Seed() []domain.ToolRecord {
	records, _, err := Read(bytes.NewReader(seedJSON))
	if err != nil {
		panic("corpusfile: embedded seed list is invalid: " + err.Error())
	}
	return records
}

func decodeEntry(item json.RawMessage) (domain.ToolRecord, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(item, &probe); err != nil {
		return domain.ToolRecord{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if _, ok := probe["tool_name"]; ok {
		var c curated
		if err := json.Unmarshal(item, &c); err != nil {
			return domain.ToolRecord{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
		name := strings.TrimSpace(c.ToolName)
		return domain.ToolRecord{
			IdentityKey: name,
			Name:        name,
			Description: strings.TrimSpace(c.Description),
			Homepage:    strings.TrimSpace(c.URL),
			Languages:   []string{},
			Topics:      []string{},
			Operations:  []string{},
		}, nil
	}

	var e Entry
	if err := json.Unmarshal(item, &e); err != nil {
		return domain.ToolRecord{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	m := e.Metadata
	id := strings.TrimSpace(m.BiotoolsID)
	if id == "" {
		id = strings.TrimSpace(m.Name)
	}
	desc := strings.TrimSpace(m.Description)
	if desc == "" {
		desc = strings.TrimSpace(strings.TrimPrefix(e.Text, m.Name+". "))
	}
	return domain.ToolRecord{
		IdentityKey: id,
		Name:        strings.TrimSpace(m.Name),
		Description: desc,
		Homepage:    strings.TrimSpace(m.Homepage),
		Languages:   nonNil(m.Language),
		Topics:      nonNil(m.Topics),
		Operations:  nonNil(m.Operations),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
