package dto

// DiscoveryConfig is the Home Assistant MQTT discovery descriptor published
// once per mailbox on a retained topic.
type DiscoveryConfig struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	StateTopic          string     `json:"state_topic"`
	JSONAttributesTopic string     `json:"json_attributes_topic"`
	AvailabilityTopic   string     `json:"availability_topic"`
	PayloadAvailable    string     `json:"payload_available"`
	PayloadNotAvailable string     `json:"payload_not_available"`
	Icon                string     `json:"icon"`
	UnitOfMeasurement   string     `json:"unit_of_measurement"`
	Device              DeviceInfo `json:"device"`
}

type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}
