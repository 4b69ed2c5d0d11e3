package mqtt

import "fmt"

// Topics builds the bus topic schema for one discovery/state prefix pair.
type Topics struct {
	DiscoveryPrefix string
	StatePrefix     string
}

// Discovery is the retained Home Assistant discovery topic for a mailbox.
func (t Topics) Discovery(mailboxID string) string {
	return fmt.Sprintf("%s/sensor/%s/config", t.DiscoveryPrefix, t.ObjectID(mailboxID))
}

// State carries the unlistened count, retained.
func (t Topics) State(mailboxID string) string {
	return fmt.Sprintf("%s/%s/state", t.StatePrefix, mailboxID)
}

// Attributes carries the full message list, retained.
func (t Topics) Attributes(mailboxID string) string {
	return fmt.Sprintf("%s/%s/attributes", t.StatePrefix, mailboxID)
}

// Availability carries online/offline, retained.
func (t Topics) Availability(mailboxID string) string {
	return fmt.Sprintf("%s/%s/availability", t.StatePrefix, mailboxID)
}

// ObjectID is the unique Home Assistant object id for a mailbox sensor.
func (t Topics) ObjectID(mailboxID string) string {
	return fmt.Sprintf("%s_voicemail_%s", t.StatePrefix, mailboxID)
}
