package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openvoip/voicemailstack/interfaces"
	vmerrors "github.com/openvoip/voicemailstack/internal/errors"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/internal/models"
	"github.com/openvoip/voicemailstack/internal/tracing"
)

const audioContentType = "audio/wav"

// StreamAudio resolves an opaque audio reference, fetches the full payload
// from the provider and serves it with synthesized byte-range support. The
// provider has no native range support, so ranges are sliced out of the
// fully buffered payload. No caching: every request re-fetches.
func StreamAudio(client interfaces.VoipmsClient, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := tracing.StartTracerSpan(c.Request.Context(), "StreamAudio")
		defer span.Finish()
		tracing.TagComponentRest(span)

		ref, err := models.DecodeAudioReference(c.Param("ref"))
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		tracing.TagMailbox(span, ref.Mailbox)

		audio, err := client.FetchAudio(ctx, ref)
		if err != nil {
			tracing.TraceErr(span, err)
			if vmerrors.IsNotFound(err) {
				c.Status(http.StatusNotFound)
				return
			}
			c.Status(http.StatusBadGateway)
			return
		}

		// Playback implies listened; best effort and detached from the
		// request lifetime so a slow provider never delays the stream.
		go func() {
			markCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := client.SetListened(markCtx, ref); err != nil {
				log.Warnf("Failed to mark %s listened: %v", ref, err)
			}
		}()

		c.Header("Content-Type", audioContentType)
		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="voicemail_%s_%d.wav"`, ref.Mailbox, ref.MessageNum))
		http.ServeContent(c.Writer, c.Request, "", time.Time{}, bytes.NewReader(audio))
	}
}

// MarkListened marks one message listened upstream.
func MarkListened(client interfaces.VoipmsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, err := models.DecodeAudioReference(c.Param("ref"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed reference"})
			return
		}

		if err := client.SetListened(c.Request.Context(), ref); err != nil {
			if vmerrors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// DeleteMessage removes one message upstream. The next poll picks up the
// resulting state change.
func DeleteMessage(client interfaces.VoipmsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, err := models.DecodeAudioReference(c.Param("ref"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed reference"})
			return
		}

		if err := client.DeleteMessage(c.Request.Context(), ref); err != nil {
			if vmerrors.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
