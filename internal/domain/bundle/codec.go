package bundle

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// ErrInvalidRecord is returned when a stored record cannot be decoded
var ErrInvalidRecord = errors.New("invalid bundle record")

// record is the storage schema for Info. Field names are a stable contract.
type record struct {
	ID         string `json:"id"`
	Version    string `json:"version"`
	Status     string `json:"status"`
	Downloaded string `json:"downloaded"`
}

// Encode serializes a record for the key-value store
func Encode(info Info) (string, error) {
	rec := record{
		ID:      info.ID,
		Version: info.Version,
		Status:  string(info.Status),
	}
	if !info.Downloaded.IsZero() {
		rec.Downloaded = info.Downloaded.UTC().Format(time.RFC3339Nano)
	}

	data, err := sonic.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode bundle %s: %w", info.ID, err)
	}
	return string(data), nil
}

// Decode parses a stored record
func Decode(data string) (Info, error) {
	var rec record
	if err := sonic.UnmarshalString(data, &rec); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rec.ID == "" {
		return Info{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}

	status := Status(rec.Status)
	if !status.IsValid() {
		return Info{}, fmt.Errorf("%w: status %q", ErrInvalidRecord, rec.Status)
	}

	info := Info{ID: rec.ID, Version: rec.Version, Status: status}
	if rec.Downloaded != "" {
		t, err := time.Parse(time.RFC3339Nano, rec.Downloaded)
		if err != nil {
			return Info{}, fmt.Errorf("%w: downloaded %q", ErrInvalidRecord, rec.Downloaded)
		}
		info.Downloaded = t
	}
	return info, nil
}
