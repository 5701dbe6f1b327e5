package post

import (
	"encoding/json"
	"time"
)

// Post is one mirrored catalog entry. The remote id is the identity key;
// the full source document is kept verbatim in Raw so downstream consumers
// can reprocess it without another fetch.
type Post struct {
	ID           int64           `json:"id"`
	Raw          json.RawMessage `json:"raw"`
	IsProcessed  bool            `json:"isProcessed"`
	LastSyncedAt time.Time       `json:"lastSyncedAt"`
}
