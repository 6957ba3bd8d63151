package domain

import (
	"errors"
	"fmt"
)

// Failure classes shared by the harvester, ingestor and query pipeline.
var (
	// ErrTransport is a network or non-2xx failure while talking to the catalog API.
	ErrTransport = errors.New("transport error")

	// ErrParse is a catalog record whose fields are malformed or missing.
	ErrParse = errors.New("parse error")

	// ErrInvalidRecord is a record that cannot be stored.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmbedding is a failed or malformed embedding computation.
	ErrEmbedding = errors.New("embedding error")

	// ErrSearch is a failed vector store lookup.
	ErrSearch = errors.New("search error")

	// ErrStoreWrite is a failed batch write.
	ErrStoreWrite = errors.New("store write error")

	// ErrSynthesis is a failed language model call.
	ErrSynthesis = errors.New("synthesis error")

	// ErrStageOrder means a query stage ran before its inputs were produced.
	ErrStageOrder = errors.New("stage order violation")

	// ErrEmptyQuestion rejects blank questions before any stage runs.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrCollectionMissing means the configured collection does not exist.
	ErrCollectionMissing = errors.New("collection does not exist")
)

// StageError records which query stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Outcome is the per-record result of an ingestion.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeUpdated     Outcome = "updated"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeEmbedFailed Outcome = "embed_failed"
)
