package models

// Mailbox is one provider voicemail box monitored by the sync engine.
// The set of mailboxes is fixed at startup, either from configuration or
// from one discovery call against the provider.
type Mailbox struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Folders []string `json:"folders"`
}

// DisplayName returns the configured name, falling back to the mailbox id.
func (m *Mailbox) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return "Voicemail " + m.ID
}
