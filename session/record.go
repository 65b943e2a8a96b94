package session

import (
	"encoding/json"
	"time"
)

// Record is the stored state of one token family.
type Record struct {
	Token     string     `json:"token"`
	CreatedAt time.Time  `json:"created_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	Family    string     `json:"token_family"`
}

// Info is the introspection view of a record. The credential itself is never exposed.
type Info struct {
	Family    string     `json:"token_family"`
	CreatedAt time.Time  `json:"created_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at,omitempty"`
}

func encodeRecord(r *Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, ErrRecordCorrupt
	}
	if r.Token == "" || r.Family == "" {
		return nil, ErrRecordCorrupt
	}
	return &r, nil
}
