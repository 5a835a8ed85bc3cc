package entities

import (
	"strings"
	"time"
)

type PublicationVenue string

const (
	VenueOfficialPortal  PublicationVenue = "official_portal"
	VenueOfficialGazette PublicationVenue = "official_gazette"
	VenueLocalPress      PublicationVenue = "local_press"
	VenueCitySite        PublicationVenue = "city_site"
)

func (v PublicationVenue) Valid() bool {
	switch v {
	case VenueOfficialPortal, VenueOfficialGazette, VenueLocalPress, VenueCitySite:
		return true
	default:
		return false
	}
}

// PublicationRecord is one official publication event. A document may be
// published in several venues; the ledger keeps every record for audit.
type PublicationRecord struct {
	PublicationID string
	DocumentID    string
	Venue         PublicationVenue
	PublishedAt   time.Time
	Page          string
	Edition       string
	URL           string
	PublishedBy   string
	CreatedAt     time.Time
}

// ValidateCreate enforces venue rules: the official gazette requires both
// page and edition; other venues leave them optional.
func (p PublicationRecord) ValidateCreate() bool {
	if strings.TrimSpace(p.DocumentID) == "" || !p.Venue.Valid() ||
		strings.TrimSpace(p.PublishedBy) == "" || p.PublishedAt.IsZero() {
		return false
	}
	if p.Venue == VenueOfficialGazette {
		return strings.TrimSpace(p.Page) != "" && strings.TrimSpace(p.Edition) != ""
	}
	return true
}
