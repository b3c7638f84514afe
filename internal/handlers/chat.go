package handlers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"geminicli2api/internal/credential"
	apperrors "geminicli2api/internal/errors"
	"geminicli2api/internal/logging"
	"geminicli2api/internal/models"
	"geminicli2api/internal/translator"
)

// ChatCompletions serves POST /v1/chat/completions. The request is
// translated once; the credential pool is then walked in order, skipping
// cooled-down identities and rotating on rate-limit signals, until one
// upstream attempt succeeds or the pool is exhausted.
func (h *Handler) ChatCompletions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeAPIError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", "Could not read request body"))
		return
	}
	if !gjson.ValidBytes(body) {
		writeAPIError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", "Request body is not valid JSON"))
		return
	}
	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		writeAPIError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", "Missing required field: model"))
		return
	}
	if !models.Known(model) {
		writeAPIError(c, apperrors.New(http.StatusNotFound, "model_not_found", "invalid_request_error", "The model `"+model+"` does not exist"))
		return
	}
	if !gjson.GetBytes(body, "messages").IsArray() {
		writeAPIError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", "Missing required field: messages"))
		return
	}

	geminiReq, err := translator.OpenAIRequestToGemini(body)
	if err != nil {
		writeAPIError(c, apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", "Could not translate request: "+err.Error()))
		return
	}

	stream := gjson.GetBytes(body, "stream").Bool()
	h.dispatch(c, model, geminiReq, stream)
}

// dispatch walks the pool. Cooldown bookkeeping happens exactly once per
// attempt outcome: a rate-limit signal sets it, a success clears it.
func (h *Handler) dispatch(c *gin.Context, model string, geminiReq []byte, stream bool) {
	ctx := c.Request.Context()
	baseModel := models.BaseName(model)

	ids, err := h.manager.ListCredentials(ctx)
	if err != nil {
		logging.WithReq(c, log.Fields{}).WithError(err).Error("could not list credentials")
		writeAPIError(c, apperrors.New(http.StatusInternalServerError, "server_error", "server_error", "Credential store unavailable"))
		return
	}

	var lastErr *apperrors.APIError
	for _, id := range ids {
		if h.manager.InCooldown(id) {
			logging.WithReq(c, log.Fields{
				"credential": id,
				"remaining":  h.manager.RemainingCooldown(id).String(),
			}).Debug("skipping cooled-down credential")
			continue
		}

		rec, projectID, err := h.prepare(ctx, id)
		if err != nil {
			var confErr *apperrors.ConfigurationError
			if errors.As(err, &confErr) {
				writeAPIError(c, apperrors.New(http.StatusInternalServerError, "configuration_error", "server_error", confErr.Reason))
				return
			}
			log.WithError(err).Warnf("credential %s is not usable for this attempt", id)
			continue
		}

		if stream {
			done, apiErr := h.attemptStream(c, rec, baseModel, model, projectID, geminiReq)
			if done {
				return
			}
			lastErr = h.afterFailedAttempt(rec, apiErr)
			continue
		}

		respBody, err := h.client.Generate(ctx, rec.AccessToken, baseModel, projectID, geminiReq)
		if err != nil {
			apiErr := asAPIError(err)
			if !apiErr.IsRetryable() {
				writeAPIError(c, apiErr)
				return
			}
			lastErr = h.afterFailedAttempt(rec, apiErr)
			continue
		}

		h.manager.ResetCooldown(rec.Identity)
		openaiBody, err := translator.GeminiResponseToOpenAI(respBody, model)
		if err != nil {
			log.WithError(err).Error("could not translate upstream response")
			writeAPIError(c, apperrors.New(http.StatusBadGateway, "bad_gateway", "server_error", "Invalid upstream response"))
			return
		}
		c.Data(http.StatusOK, "application/json", openaiBody)
		return
	}

	if lastErr != nil {
		writeAPIError(c, lastErr)
		return
	}
	writeAPIError(c, apperrors.New(http.StatusServiceUnavailable, "service_unavailable", "server_error", "No usable credential available"))
}

// prepare readies one credential for an upstream attempt: load, refresh,
// project resolution, onboarding.
func (h *Handler) prepare(ctx context.Context, identity string) (*credential.Record, string, error) {
	rec, err := h.manager.Load(ctx, identity)
	if err != nil {
		return nil, "", err
	}
	rec, err = h.manager.RefreshIfExpired(ctx, rec)
	if err != nil {
		return nil, "", err
	}
	projectID, err := h.resolver.ResolveProjectID(ctx, rec)
	if err != nil {
		return nil, "", err
	}
	if err := h.resolver.EnsureOnboarded(ctx, rec, projectID); err != nil {
		return nil, "", err
	}
	return rec, projectID, nil
}

// afterFailedAttempt applies cooldown bookkeeping for a failed upstream
// call and returns the error for the exhaustion report.
func (h *Handler) afterFailedAttempt(rec *credential.Record, apiErr *apperrors.APIError) *apperrors.APIError {
	if apiErr.HTTPStatus == http.StatusTooManyRequests {
		dur := h.manager.SetCooldown(rec.Identity)
		log.WithFields(log.Fields{
			"credential": rec.Identity,
			"cooldown":   dur.String(),
		}).Info("credential rate limited, rotating")
	} else {
		log.WithFields(log.Fields{
			"credential": rec.Identity,
			"status":     apiErr.HTTPStatus,
		}).Warn("upstream attempt failed, rotating")
	}
	return apiErr
}

// attemptStream opens the upstream SSE stream and, once open, relays it.
// Returns done=true when a response (success or terminal error) was written
// to the client; rotation is only possible before the first byte is sent.
func (h *Handler) attemptStream(c *gin.Context, rec *credential.Record, baseModel, model, projectID string, geminiReq []byte) (bool, *apperrors.APIError) {
	resp, err := h.client.GenerateStream(c.Request.Context(), rec.AccessToken, baseModel, projectID, geminiReq)
	if err != nil {
		apiErr := asAPIError(err)
		if !apiErr.IsRetryable() {
			writeAPIError(c, apiErr)
			return true, nil
		}
		return false, apiErr
	}
	defer resp.Body.Close()

	h.manager.ResetCooldown(rec.Identity)
	relayStream(c, resp.Body, model)
	return true, nil
}

// relayStream reads upstream SSE events, translates each chunk, and writes
// OpenAI-shaped events. All chunks share one response id.
func relayStream(c *gin.Context, upstream io.Reader, model string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, _ := c.Writer.(http.Flusher)
	responseID := translator.NewResponseID()

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "" || payload == "[DONE]" {
			continue
		}
		chunk, err := translator.GeminiChunkToOpenAI([]byte(payload), model, responseID)
		if err != nil {
			log.WithError(err).Debug("dropping untranslatable stream chunk")
			continue
		}
		writeSSE(c, flusher, chunk)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("upstream stream ended with error")
	}
	writeSSE(c, flusher, []byte("[DONE]"))
}

func writeSSE(c *gin.Context, flusher http.Flusher, data []byte) {
	var buf bytes.Buffer
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	if _, err := c.Writer.Write(buf.Bytes()); err != nil {
		return
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func asAPIError(err error) *apperrors.APIError {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apperrors.New(http.StatusBadGateway, "bad_gateway", "server_error", err.Error())
}

func writeAPIError(c *gin.Context, apiErr *apperrors.APIError) {
	c.Data(apiErr.HTTPStatus, "application/json", apiErr.ToJSON())
}
