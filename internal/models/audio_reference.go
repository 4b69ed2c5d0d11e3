package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/openvoip/voicemailstack/internal/errors"
)

// AudioReference identifies one voicemail's audio payload at the provider.
// It travels as an opaque token inside published message metadata so remote
// players can fetch audio through the proxy without provider credentials.
type AudioReference struct {
	Mailbox    string
	Folder     string
	MessageNum int
}

// Encode serializes the reference into a URL-safe opaque token.
func (r AudioReference) Encode() string {
	raw := fmt.Sprintf("%s|%s|%d", r.Mailbox, r.Folder, r.MessageNum)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (r AudioReference) String() string {
	return fmt.Sprintf("%s/%s/%d", r.Mailbox, r.Folder, r.MessageNum)
}

// DecodeAudioReference parses a token produced by Encode. It returns
// ErrMalformedReference for anything that does not decode into three
// non-empty fields with a positive message number.
func DecodeAudioReference(token string) (AudioReference, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return AudioReference{}, errors.ErrMalformedReference
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return AudioReference{}, errors.ErrMalformedReference
	}

	num, err := strconv.Atoi(parts[2])
	if err != nil || num < 0 {
		return AudioReference{}, errors.ErrMalformedReference
	}

	return AudioReference{Mailbox: parts[0], Folder: parts[1], MessageNum: num}, nil
}
