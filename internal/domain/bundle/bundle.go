package bundle

import (
	"fmt"
	"time"
)

// Reserved ids that never name a real directory
const (
	IDBuiltin = "builtin"
	IDUnknown = "unknown"
)

// Status is the lifecycle state of an installed bundle
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusPending     Status = "pending"
	StatusSuccess     Status = "success"
	StatusError       Status = "error"
)

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusDownloading, StatusPending, StatusSuccess, StatusError:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Info describes one installed bundle. Values are immutable; the With*
// methods return modified copies.
type Info struct {
	ID         string
	Version    string
	Status     Status
	Downloaded time.Time
}

// New creates a record stamped with the current time
func New(id, version string, status Status) Info {
	return Info{ID: id, Version: version, Status: status, Downloaded: time.Now().UTC()}
}

// Builtin returns the synthesized record for the bundle shipped with the app
func Builtin() Info {
	return Info{ID: IDBuiltin, Version: "", Status: StatusSuccess}
}

// Unknown returns the synthesized record for ids that cannot be resolved
func Unknown() Info {
	return Info{ID: IDUnknown, Version: "", Status: StatusError}
}

// IsBuiltin reports whether the record is the builtin sentinel
func (i Info) IsBuiltin() bool { return i.ID == IDBuiltin }

// IsUnknown reports whether the record is the unknown sentinel
func (i Info) IsUnknown() bool { return i.ID == IDUnknown }

// IsSentinel reports whether the record must never be persisted
func (i Info) IsSentinel() bool { return IsSentinelID(i.ID) }

// IsSentinelID reports whether id is one of the reserved ids.
// The empty id means "builtin" in the current pointer.
func IsSentinelID(id string) bool {
	return id == "" || id == IDBuiltin || id == IDUnknown
}

// WithID returns a copy bound to id
func (i Info) WithID(id string) Info {
	i.ID = id
	return i
}

// WithVersion returns a copy with a new version name
func (i Info) WithVersion(version string) Info {
	i.Version = version
	return i
}

// WithStatus returns a copy with a new status
func (i Info) WithStatus(status Status) Info {
	i.Status = status
	return i
}

// WithDownloaded returns a copy with a new download timestamp
func (i Info) WithDownloaded(t time.Time) Info {
	i.Downloaded = t
	return i
}

func (i Info) String() string {
	return fmt.Sprintf("{id=%s version=%q status=%s downloaded=%s}",
		i.ID, i.Version, i.Status, i.Downloaded.Format(time.RFC3339))
}
