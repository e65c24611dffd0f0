package models

import "time"

// SchemaVersion is one entry of the append-only versions log.
type SchemaVersion struct {
	Seq       int64
	Version   string
	AppliedAt time.Time
}
