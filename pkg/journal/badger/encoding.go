package badger

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Key Namespace
// ============================================================================
//
// A snapshot is stored as one record per queued element so that a restart
// can restore order without decoding one large document.
//
// Data Type        Prefix   Key Format          Value Type
// =========================================================================
// Snapshot header  "meta:"  meta:snapshot       snapshotHeader (JSON)
// Download queue   "d:"     d:<seq>             ContentReference (JSON)
// Upload queue     "u:"     u:<seq>             SnapshotItem (JSON)
// Token buffers    "t:"     t:<destination>     []string (JSON)
// History ring     "h:"     h:<seq>             SnapshotEntry (JSON)
//
// Sequence numbers are zero-padded so lexicographic key order equals queue
// order.

const (
	prefixMeta     = "meta:"
	prefixDownload = "d:"
	prefixUpload   = "u:"
	prefixTokens   = "t:"
	prefixHistory  = "h:"
)

// schemaVersion is bumped when the record layout changes.
const schemaVersion = 1

// dataPrefixes are the prefixes rewritten on every save.
var dataPrefixes = []string{prefixDownload, prefixUpload, prefixTokens, prefixHistory}

type snapshotHeader struct {
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	Downloads int       `json:"downloads"`
	Uploads   int       `json:"uploads"`
	History   int       `json:"history"`
}

func keyHeader() []byte {
	return []byte(prefixMeta + "snapshot")
}

func keySeq(prefix string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%08d", prefix, seq))
}

func keyTokens(destination string) []byte {
	return []byte(prefixTokens + destination)
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
