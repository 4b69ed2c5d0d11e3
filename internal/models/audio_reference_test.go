package models

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvoip/voicemailstack/internal/errors"
)

func TestAudioReference_RoundTrip(t *testing.T) {
	// Arrange
	ref := AudioReference{Mailbox: "12345", Folder: "INBOX", MessageNum: 7}

	// Act
	token := ref.Encode()
	decoded, err := DecodeAudioReference(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ref, decoded)
}

func TestAudioReference_TokenIsURLSafe(t *testing.T) {
	// Arrange: folder names can contain characters unsafe in a URL path
	ref := AudioReference{Mailbox: "12345", Folder: "Urgent Messages", MessageNum: 1}

	// Act
	token := ref.Encode()

	// Assert
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "=")

	decoded, err := DecodeAudioReference(token)
	require.NoError(t, err)
	assert.Equal(t, "Urgent Messages", decoded.Folder)
}

func TestDecodeAudioReference_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"empty token", ""},
		{"too few fields", base64.RawURLEncoding.EncodeToString([]byte("12345|INBOX"))},
		{"too many fields", base64.RawURLEncoding.EncodeToString([]byte("12345|INBOX|1|extra"))},
		{"empty mailbox", base64.RawURLEncoding.EncodeToString([]byte("|INBOX|1"))},
		{"empty folder", base64.RawURLEncoding.EncodeToString([]byte("12345||1"))},
		{"non-numeric message num", base64.RawURLEncoding.EncodeToString([]byte("12345|INBOX|abc"))},
		{"negative message num", base64.RawURLEncoding.EncodeToString([]byte("12345|INBOX|-1"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAudioReference(tt.token)
			assert.ErrorIs(t, err, errors.ErrMalformedReference)
		})
	}
}

func TestAudioReference_String(t *testing.T) {
	ref := AudioReference{Mailbox: "12345", Folder: "INBOX", MessageNum: 7}
	assert.Equal(t, "12345/INBOX/7", ref.String())
}
