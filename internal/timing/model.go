package timing

import "time"

// Entry is one recorded sighting of a start number at a timing point.
// The capture timestamp comes from the client (the moment the operator
// started keying in the number); CreatedAt is assigned server-side for
// auditing only. Entries keep their id, owner and timestamp for life;
// only the start number can be corrected afterwards.
type Entry struct {
	ID            string    `json:"id"`
	TimingPointID string    `json:"timingPointId"`
	StartNumber   string    `json:"startNumber"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Event is a race event owning timing points.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimingPoint is a checkpoint where sightings are recorded independently
// of all other checkpoints. FirstName/LastName name the operator manning
// the point; Position is the explicit display order within the event.
type TimingPoint struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Name      string    `json:"name"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// DNF/DNS status tags.
const (
	StatusDNF = "DNF"
	StatusDNS = "DNS"
)

// DnfDnsRecord marks a start number as DNF or DNS at one timing point.
// At most one record exists per start number; a new mark replaces the
// old one without keeping history.
type DnfDnsRecord struct {
	StartNumber string    `json:"startNumber"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StartlistRow is one imported participant. Read-only to the engine; it
// is only joined against entries and DNF/DNS records for status display.
type StartlistRow struct {
	StartNumber string `json:"startNumber"`
	LastName    string `json:"lastName"`
	FirstName   string `json:"firstName"`
	Gender      string `json:"gender"`
	YearOfBirth string `json:"yearOfBirth"`
}

// Settings is the process-wide configuration editable from any client.
type Settings struct {
	DisplayMode    string `json:"displayMode"`
	DuplicateColor string `json:"duplicateColor"`
	EmailSMTP      string `json:"emailSmtp"`
	EmailPort      int    `json:"emailPort"`
	EmailUser      string `json:"emailUser"`
	EmailPass      string `json:"emailPass"`
	EmailFrom      string `json:"emailFrom"`
}

// DefaultSettings returns the settings used before anything was saved.
func DefaultSettings() Settings {
	return Settings{
		DisplayMode:    "numberTime",
		DuplicateColor: "#FF3B30",
		EmailPort:      587,
	}
}

// EmailConfigured reports whether outbound mail can be attempted.
func (s Settings) EmailConfigured() bool {
	return s.EmailSMTP != "" && s.EmailUser != ""
}
