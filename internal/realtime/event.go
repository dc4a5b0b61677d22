package realtime

// Event types pushed to clients. The entry events and the DNF/DNS event
// are scoped to the sessions subscribed to one timing point; the
// settings event goes to every connected session.
const (
	EntryAdded      = "entry-added"
	EntryUpdated    = "entry-updated"
	EntryDeleted    = "entry-deleted"
	DnfDnsChanged   = "dnfdns-changed"
	SettingsChanged = "settings-changed"
)

// Event is one typed state change as it goes over the wire.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
