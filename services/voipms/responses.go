package voipms

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/openvoip/voicemailstack/internal/models"
)

type statusResponse struct {
	Status string `json:"status"`
}

type voicemailsResponse struct {
	statusResponse
	Voicemails wireList[voicemailWire] `json:"voicemails"`
}

type messagesResponse struct {
	statusResponse
	Messages wireList[messageWire] `json:"messages"`
}

type messageFileResponse struct {
	statusResponse
	Message struct {
		Data string `json:"data"`
	} `json:"message"`
}

// wireList tolerates the provider returning either a JSON array or a single
// object when only one record exists.
type wireList[T any] struct {
	raw json.RawMessage
}

func (l *wireList[T]) UnmarshalJSON(data []byte) error {
	l.raw = append(l.raw[:0], data...)
	return nil
}

func (l wireList[T]) items() ([]T, error) {
	if len(l.raw) == 0 {
		return nil, nil
	}
	var many []T
	if err := json.Unmarshal(l.raw, &many); err == nil {
		return many, nil
	}
	var one T
	if err := json.Unmarshal(l.raw, &one); err != nil {
		return nil, errors.Wrap(err, "decoding provider list")
	}
	return []T{one}, nil
}

type voicemailWire struct {
	Mailbox string `json:"mailbox"`
	Name    string `json:"name"`
}

// messageWire mirrors the provider's stringly-typed message payload.
type messageWire struct {
	Folder     string `json:"folder"`
	MessageNum string `json:"message_num"`
	CallerID   string `json:"callerid"`
	Date       string `json:"date"`
	Duration   string `json:"duration"`
	Listened   string `json:"listened"`
	Urgent     string `json:"urgent"`
	Size       string `json:"size"`
}

const providerDateLayout = "2006-01-02 15:04:05"

func (w messageWire) toRecord(mailboxID, folder string) (models.MessageRecord, error) {
	num, err := strconv.Atoi(w.MessageNum)
	if err != nil {
		return models.MessageRecord{}, errors.Wrapf(err, "message_num %q", w.MessageNum)
	}

	date, err := time.Parse(providerDateLayout, w.Date)
	if err != nil {
		// The timestamp is informational; a missing one should not drop
		// the record from the snapshot.
		date = time.Time{}
	}

	size, _ := strconv.ParseInt(w.Size, 10, 64)

	if w.Folder != "" {
		folder = w.Folder
	}

	return models.MessageRecord{
		Mailbox:    mailboxID,
		Folder:     folder,
		MessageNum: num,
		CallerID:   w.CallerID,
		Date:       date,
		Duration:   parseDurationSeconds(w.Duration),
		Listened:   strings.EqualFold(w.Listened, "yes"),
		Urgent:     strings.EqualFold(w.Urgent, "yes"),
		Size:       size,
	}, nil
}

// parseDurationSeconds accepts the provider's "HH:MM:SS" / "MM:SS" clock
// format as well as a plain seconds count.
func parseDurationSeconds(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if !strings.Contains(value, ":") {
		seconds, _ := strconv.Atoi(value)
		return seconds
	}
	parts := strings.Split(value, ":")
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}
