package domain

import "time"

// Category is the reporter-selected emergency type.
type Category string

const (
	CategoryFlood     Category = "flood"
	CategoryLandslide Category = "landslide"
	CategoryMedical   Category = "medical"
	CategoryTrapped   Category = "trapped"
	CategoryOther     Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFlood, CategoryLandslide, CategoryMedical, CategoryTrapped, CategoryOther:
		return true
	}
	return false
}

// Status is the dispatch lifecycle state of a stored incident.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IncidentReport is one emergency report. Location and Address are optional;
// a missing location is flagged downstream, never filled in. ImageURL is set
// only after the blob collaborator has accepted the attached photo.
// CreatedAt is assigned by the dispatch store, not by this service.
type IncidentReport struct {
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Type        Category  `json:"type"`
	Description string    `json:"description"`
	Location    *Geo      `json:"location,omitempty"`
	Address     string    `json:"address,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Status      Status    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"timestamp,omitzero"`
}

// HasLocation reports whether the reporter captured GPS coordinates.
func (r IncidentReport) HasLocation() bool { return r.Location != nil }

// QueuedSubmission wraps a report awaiting delivery. It is owned by the
// durable queue for its resident lifetime; the sync engine works on copies
// and asks the queue to remove the record once the store has acknowledged it.
// Synced is always false while the record is resident — it exists for
// inspection compatibility, not as a state machine.
//
// The report fields are embedded so the persisted record stays flat:
//
//	{"id": ..., "name": ..., "phone": ..., ..., "queuedAt": ..., "synced": false}
type QueuedSubmission struct {
	ID             string `json:"id"`
	IncidentReport        // embedded report payload
	QueuedAt       time.Time `json:"queuedAt"`
	Synced         bool      `json:"synced"`
}
