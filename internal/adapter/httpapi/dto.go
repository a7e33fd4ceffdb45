package httpapi

import "github.com/couchcryptid/rescuehq-core/internal/domain"

// SubmitIncidentRequest is the submission payload. Coordinates are optional
// but must arrive as a pair; the image, when present, is base64-encoded in
// the JSON body.
type SubmitIncidentRequest struct {
	Name        string        `json:"name" validate:"required,min=2,max=255"`
	Phone       string        `json:"phone" validate:"required,e164"`
	Type        string        `json:"type" validate:"required,oneof=flood landslide medical trapped other"`
	Description string        `json:"description" validate:"required,max=2000"`
	Latitude    *float64      `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64      `json:"longitude" validate:"omitempty,longitude"`
	Address     string        `json:"address,omitempty" validate:"max=500"`
	Image       *ImagePayload `json:"image,omitempty"`
}

// ImagePayload is an attached photo.
type ImagePayload struct {
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
	Data        []byte `json:"data" validate:"required"`
}

// SubmitDeliveredResponse is returned when the incident reached the store.
// LocationMissing echoes that the report carried no coordinates; the service
// never synthesizes a position for it.
type SubmitDeliveredResponse struct {
	ID               string `json:"id"`
	NotificationSent bool   `json:"notificationSent"`
	LocationMissing  bool   `json:"location_missing,omitempty"`
}

// SubmitQueuedResponse is returned when the incident parked in the queue.
type SubmitQueuedResponse struct {
	domain.QueuedSubmission
	LocationMissing bool `json:"location_missing,omitempty"`
}

// SyncResponse mirrors submit.DrainResult for the manual sync endpoint.
type SyncResponse struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}
