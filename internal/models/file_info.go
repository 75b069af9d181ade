package models

import "time"

// FileKind distinguishes what an uploaded file holds.
type FileKind string

const (
	FileKindAntennas FileKind = "antennas"
	FileKindSkyModel FileKind = "skymodel"
)

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	Kind       FileKind  `json:"kind" msgpack:"kind"`
	Size       int64     `json:"size" msgpack:"size"`
	UploadedAt time.Time `json:"uploadedAt" msgpack:"uploadedAt"`
	Status     string    `json:"status" msgpack:"status"` // "uploaded", "validated", "error"
	// Summary describes the validated content, e.g. "27 antennas" or "512x512".
	Summary string `json:"summary,omitempty" msgpack:"summary,omitempty"`
}
