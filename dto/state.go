package dto

// StateAttributes is the retained attributes payload carrying the full
// message list for a mailbox. The state topic itself carries only the
// unlistened count.
type StateAttributes struct {
	TotalMessages int                 `json:"total_messages"`
	NewMessages   int                 `json:"new_messages"`
	Messages      []MessageAttributes `json:"messages"`
}

// MessageAttributes is one voicemail in the attributes payload. AudioURL
// points at the audio proxy, not the provider: remote players have no
// provider credentials.
type MessageAttributes struct {
	Folder     string `json:"folder"`
	MessageNum int    `json:"message_num"`
	CallerID   string `json:"callerid"`
	Date       string `json:"date,omitempty"`
	Duration   int    `json:"duration"`
	Listened   bool   `json:"listened"`
	Urgent     bool   `json:"urgent"`
	AudioURL   string `json:"audio_url"`
}
