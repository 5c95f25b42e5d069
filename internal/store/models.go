package store

import "time"

// Document is one classified PDF in the library. DocID is the SHA-256 hex
// digest of the file bytes, so identical content maps to the same row.
type Document struct {
	DocID      string
	Path       string
	Vendor     string
	DocType    string
	Topic      string
	Topology   string
	Confidence float64
	Title      string
	Language   string
	PageCount  int
	AddedAt    time.Time
}

// ChunkRecord is one indexed piece of document text.
type ChunkRecord struct {
	ChunkID   int64
	DocID     string
	Text      string
	PageStart int
}

// ChunkHit is a chunk returned by one search channel together with its
// parent document fields and the channel's raw score. For FTS hits Raw is
// the bm25 value (lower is better); for vector hits it is the distance.
type ChunkHit struct {
	ChunkID   int64
	DocID     string
	Text      string
	PageStart int
	Path      string
	Vendor    string
	DocType   string
	Title     string
	Raw       float64
}

// Stats summarizes the knowledge base.
type Stats struct {
	Documents  int64
	Chunks     int64
	Embeddings int64
	ByVendor   map[string]int64
	ByDocType  map[string]int64
}
