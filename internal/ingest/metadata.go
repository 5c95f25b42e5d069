package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"alaidocs/internal/store"
)

// metadataFile is the append-only JSONL export in the classified root.
// Each ingested document gets one line; downstream tooling tails it.
const metadataFile = "metadata.jsonl"

type metadataEntry struct {
	BatchID    string  `json:"batch_id"`
	DocID      string  `json:"doc_id"`
	Path       string  `json:"path"`
	Vendor     string  `json:"vendor"`
	DocType    string  `json:"doc_type"`
	Topic      string  `json:"topic"`
	Topology   string  `json:"topology"`
	Confidence float64 `json:"confidence"`
	Title      string  `json:"title"`
	Language   string  `json:"language"`
	PageCount  int     `json:"page_count"`
	AddedAt    string  `json:"added_at"`
}

func newBatchID() string {
	return uuid.NewString()
}

func appendMetadata(classifiedRoot, batchID string, d store.Document) error {
	if err := os.MkdirAll(classifiedRoot, 0o755); err != nil {
		return err
	}
	line, err := json.Marshal(metadataEntry{
		BatchID:    batchID,
		DocID:      d.DocID,
		Path:       d.Path,
		Vendor:     d.Vendor,
		DocType:    d.DocType,
		Topic:      d.Topic,
		Topology:   d.Topology,
		Confidence: d.Confidence,
		Title:      d.Title,
		Language:   d.Language,
		PageCount:  d.PageCount,
		AddedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", d.DocID, err)
	}

	f, err := os.OpenFile(filepath.Join(classifiedRoot, metadataFile),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}
