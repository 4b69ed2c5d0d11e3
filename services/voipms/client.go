package voipms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/interfaces"
	vmerrors "github.com/openvoip/voicemailstack/internal/errors"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/models"
	"github.com/openvoip/voicemailstack/internal/tracing"
)

// errNoRecords marks the provider statuses that mean "nothing there" rather
// than a real failure (empty mailbox list, empty folder).
var errNoRecords = errors.New("voipms: no records")

type Client struct {
	cfg        *config.VoipmsConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

// NewClient builds the provider client. All requests share one rate gate so
// concurrent mailbox workers cannot exceed the provider's minimum request
// spacing; a throttled call queues on the gate instead of failing.
func NewClient(cfg *config.VoipmsConfig, log logger.Logger) interfaces.VoipmsClient {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1),
		log:     log,
	}
}

func (c *Client) ListMailboxes(ctx context.Context) ([]models.Mailbox, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "VoipmsClient.ListMailboxes")
	defer span.Finish()
	tracing.TagComponentService(span)

	var response voicemailsResponse
	err := c.apiRequest(ctx, "getVoicemails", nil, &response)
	if errors.Is(err, errNoRecords) {
		return nil, nil
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	wires, err := response.Voicemails.items()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, &vmerrors.TransientError{Cause: err}
	}

	mailboxes := make([]models.Mailbox, 0, len(wires))
	for _, w := range wires {
		if w.Mailbox == "" {
			continue
		}
		mailboxes = append(mailboxes, models.Mailbox{
			ID:      w.Mailbox,
			Name:    w.Name,
			Folders: c.cfg.Folders,
		})
	}
	return mailboxes, nil
}

func (c *Client) ListMessages(ctx context.Context, mailbox *models.Mailbox) (models.MailboxSnapshot, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "VoipmsClient.ListMessages")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, mailbox.ID)

	folders := mailbox.Folders
	if len(folders) == 0 {
		folders = c.cfg.Folders
	}

	// A snapshot is all-or-nothing: any folder failing aborts the poll so
	// the previous snapshot stays in place.
	merged := make([]models.MessageRecord, 0)
	for _, folder := range folders {
		records, err := c.listFolder(ctx, mailbox.ID, folder)
		if err != nil {
			tracing.TraceErr(span, err)
			return models.MailboxSnapshot{}, err
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].MessageNum < records[j].MessageNum
		})
		merged = append(merged, records...)
	}

	return models.MailboxSnapshot{
		MailboxID: mailbox.ID,
		Messages:  merged,
		FetchedAt: time.Now(),
	}, nil
}

func (c *Client) listFolder(ctx context.Context, mailboxID, folder string) ([]models.MessageRecord, error) {
	params := url.Values{}
	params.Set("mailbox", mailboxID)
	params.Set("folder", folder)

	var response messagesResponse
	err := c.apiRequest(ctx, "getVoicemailMessages", params, &response)
	if errors.Is(err, errNoRecords) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	wires, err := response.Messages.items()
	if err != nil {
		return nil, &vmerrors.TransientError{Cause: err}
	}

	records := make([]models.MessageRecord, 0, len(wires))
	for _, w := range wires {
		record, err := w.toRecord(mailboxID, folder)
		if err != nil {
			c.log.Warnf("Skipping unparsable message in %s/%s: %v", mailboxID, folder, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) FetchAudio(ctx context.Context, ref models.AudioReference) ([]byte, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "VoipmsClient.FetchAudio")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, ref.Mailbox)

	params := url.Values{}
	params.Set("mailbox", ref.Mailbox)
	params.Set("folder", ref.Folder)
	params.Set("message_num", strconv.Itoa(ref.MessageNum))

	var response messageFileResponse
	err := c.apiRequest(ctx, "getVoicemailMessageFile", params, &response)
	if errors.Is(err, errNoRecords) {
		return nil, &vmerrors.NotFoundError{Reference: ref.String()}
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if response.Message.Data == "" {
		return nil, &vmerrors.NotFoundError{Reference: ref.String()}
	}

	// The provider delivers audio inline as base64 inside the JSON
	// envelope, so the full decoded payload lives in memory here.
	audio, err := base64.StdEncoding.DecodeString(response.Message.Data)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, &vmerrors.TransientError{Cause: errors.Wrap(err, "decoding audio payload")}
	}
	return audio, nil
}

func (c *Client) SetListened(ctx context.Context, ref models.AudioReference) error {
	span, ctx := tracing.StartTracerSpan(ctx, "VoipmsClient.SetListened")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, ref.Mailbox)

	params := url.Values{}
	params.Set("mailbox", ref.Mailbox)
	params.Set("folder", ref.Folder)
	params.Set("message_num", strconv.Itoa(ref.MessageNum))
	params.Set("listened", "yes")

	var response statusResponse
	err := c.apiRequest(ctx, "markListenedVoicemailMessage", params, &response)
	if err != nil && !errors.Is(err, errNoRecords) {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, ref models.AudioReference) error {
	span, ctx := tracing.StartTracerSpan(ctx, "VoipmsClient.DeleteMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagMailbox(span, ref.Mailbox)

	params := url.Values{}
	params.Set("mailbox", ref.Mailbox)
	params.Set("folder", ref.Folder)
	params.Set("message_num", strconv.Itoa(ref.MessageNum))

	var response statusResponse
	err := c.apiRequest(ctx, "delMessages", params, &response)
	if errors.Is(err, errNoRecords) {
		return &vmerrors.NotFoundError{Reference: ref.String()}
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (c *Client) CheckCredentials(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "VoipmsClient.CheckCredentials")
	defer span.Finish()
	tracing.TagComponentService(span)

	var response statusResponse
	err := c.apiRequest(ctx, "getBalance", nil, &response)
	if err != nil && !errors.Is(err, errNoRecords) {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// apiRequest performs one authenticated provider call. It waits on the
// shared rate gate first, then maps transport and provider-status failures
// onto the typed error taxonomy.
func (c *Client) apiRequest(ctx context.Context, method string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &vmerrors.TransientError{Cause: err}
	}

	query := url.Values{}
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	query.Set("api_username", c.cfg.Username)
	query.Set("api_password", c.cfg.APIPassword)
	query.Set("method", method)
	query.Set("content_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+query.Encode(), nil)
	if err != nil {
		return &vmerrors.TransientError{Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &vmerrors.TransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &vmerrors.RateLimitedError{RetryAfter: retryAfterHint(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return &vmerrors.TransientError{Cause: errors.Errorf("provider returned HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &vmerrors.TransientError{Cause: err}
	}

	var envelope statusResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &vmerrors.TransientError{Cause: errors.Wrap(err, "decoding provider response")}
	}

	if envelope.Status != "success" {
		return statusError(envelope.Status)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &vmerrors.TransientError{Cause: errors.Wrap(err, "decoding provider response")}
		}
	}
	return nil
}

// statusError maps a non-success provider status string onto the taxonomy.
func statusError(status string) error {
	switch status {
	case "invalid_credentials", "missing_credentials", "api_not_enabled", "ip_not_enabled":
		return &vmerrors.AuthError{Reason: status}
	case "no_voicemail", "no_messages", "no_message":
		return errNoRecords
	case "rate_limit_exceeded", "too_many_requests":
		return &vmerrors.RateLimitedError{}
	default:
		return &vmerrors.TransientError{Cause: errors.Errorf("provider status %q", status)}
	}
}

func retryAfterHint(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
