package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/httpclient"
	"github.com/zhu-jl18/vidrename-go/internal/media"
)

const (
	// probeTimeout bounds the startup connectivity probe.
	probeTimeout = 10 * time.Second

	// probePrompt is sent with the probe payload. Any 2xx reply passes;
	// the prompt exists so the call exercises the full inference path.
	probePrompt = "这是一个连接测试，请回复'连接正常'"

	// probeImage is a 1x1 PNG, the smallest payload the service accepts.
	probeImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChAI/hQyHqQAAAABJRU5ErkJggg=="

	// maxPreviewLen caps response excerpts attached to errors and logs.
	maxPreviewLen = 500
)

// visionRequest is the JSON body sent to the vision service.
type visionRequest struct {
	Prompt    string   `json:"prompt"`
	ImageData []string `json:"image_data"`
	Model     string   `json:"model"`
}

// VisionProvider classifies frame sets by sending them to an external
// vision service over HTTP.
type VisionProvider struct {
	settings   *conf.ClassifierSettings
	httpClient *httpclient.Client
}

// NewVisionProvider creates a provider for the configured service endpoint.
func NewVisionProvider(settings *conf.ClassifierSettings) *VisionProvider {
	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Timeout,
	})
	client.SetBeforeRequestHook(func(req *http.Request) {
		logger.Debug("Sending vision service request",
			"url", req.URL.String(),
			"content_length", req.ContentLength)
	})
	return &VisionProvider{
		settings:   settings,
		httpClient: client,
	}
}

// timeout returns the per-call timeout, falling back to the transport
// default when unconfigured.
func (p *VisionProvider) timeout() time.Duration {
	if p.settings.Timeout > 0 {
		return p.settings.Timeout
	}
	return httpclient.DefaultTimeout
}

// Classify sends the frame set as a single request and returns the
// normalized, validated description.
func (p *VisionProvider) Classify(ctx context.Context, frames []media.Frame) (string, error) {
	if len(frames) == 0 {
		return "", errors.Newf("no frames to classify").
			Category(errors.CategoryValidation).
			Context("operation", "classify").
			Build()
	}

	images := make([]string, 0, len(frames))
	for i := range frames {
		images = append(images, base64.StdEncoding.EncodeToString(frames[i].JPEG))
	}

	payload := visionRequest{
		Prompt:    p.settings.Prompt,
		ImageData: images,
		Model:     p.settings.Model,
	}

	raw, err := p.post(ctx, payload, p.timeout())
	if err != nil {
		return "", err
	}

	description := Normalize(raw)
	if err := Validate(description); err != nil {
		logger.Warn("Vision service reply failed validation",
			"error", err,
			"raw_preview", preview(raw))
		return "", err
	}

	return description, nil
}

// Probe sends a minimal test payload to verify the service is reachable
// and answering. Any 2xx response passes.
func (p *VisionProvider) Probe(ctx context.Context) error {
	payload := visionRequest{
		Prompt:    probePrompt,
		ImageData: []string{probeImage},
		Model:     p.settings.Model,
	}

	_, err := p.post(ctx, payload, probeTimeout)
	return err
}

// Close releases idle connections held by the transport.
func (p *VisionProvider) Close() {
	p.httpClient.Close()
}

// post performs one request against the service and extracts the
// description text from the response body.
func (p *VisionProvider) post(ctx context.Context, payload visionRequest, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	url := p.settings.APIURL

	resp, err := p.httpClient.Post(reqCtx, url, "application/json", payload)
	if err != nil {
		// A canceled parent context means shutdown, not a service fault.
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("classification interrupted: %w", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Vision service request timed out",
				"url", url,
				"timeout", timeout)
			return "", errors.Newf("vision service request timed out after %s: %w", timeout, err).
				Category(errors.CategoryTimeout).
				NetworkContext(url, timeout).
				Context("operation", "classify-request").
				Build()
		}
		logger.Error("Vision service request failed",
			"error", err,
			"url", url)
		return "", errors.Newf("vision service request failed: %w", err).
			Category(errors.CategoryNetwork).
			NetworkContext(url, timeout).
			Context("operation", "classify-request").
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			_ = err
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("Failed to read vision service response",
			"error", err,
			"url", url,
			"status_code", resp.StatusCode)
		return "", errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Context("status_code", resp.StatusCode).
			Build()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Authentication failures get their own log line so a bad key or
		// proxy config is obvious from the service log.
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			logger.Error("Vision service authentication failed",
				"status_code", resp.StatusCode,
				"url", url,
				"response_preview", preview(string(bodyBytes)),
				"message", "Check the vision service configuration")
		} else {
			logger.Warn("Vision service error response",
				"status_code", resp.StatusCode,
				"url", url,
				"response_preview", preview(string(bodyBytes)))
		}

		return "", errors.Newf("vision service error (status %d): %s", resp.StatusCode, preview(string(bodyBytes))).
			Category(statusCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("url", url).
			Context("operation", "classify-request").
			Build()
	}

	description, err := extractDescription(bodyBytes)
	if err != nil {
		logger.Error("Failed to parse vision service response",
			"error", err,
			"url", url,
			"response_size", len(bodyBytes),
			"response_preview", preview(string(bodyBytes)))
		return "", err
	}

	logger.Debug("Vision service request successful",
		"url", url,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_size", len(bodyBytes))

	return description, nil
}

// extractDescription pulls the description text out of a service reply.
// The primary field is "response"; some deployments answer with "text".
func extractDescription(body []byte) (string, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return "", errors.Newf("malformed response from vision service: %w", err).
			Category(errors.CategoryClassification).
			Context("operation", "parse-response").
			Context("response_preview", preview(string(body))).
			Build()
	}

	if text, err := obj.GetString("response"); err == nil {
		return text, nil
	}
	if text, err := obj.GetString("text"); err == nil {
		return text, nil
	}

	return "", errors.Newf("vision service response carries no description field").
		Category(errors.CategoryClassification).
		Context("operation", "parse-response").
		Context("response_preview", preview(string(body))).
		Build()
}

// statusCategory maps an HTTP status to an error category, which decides
// whether the scheduler retries the attempt.
func statusCategory(statusCode int) errors.ErrorCategory {
	switch {
	case statusCode == 401 || statusCode == 403 || statusCode == 404:
		// Bad credentials or a bad endpoint need a config fix, not a retry.
		return errors.CategoryConfiguration
	case statusCode == 429:
		return errors.CategoryNetwork
	case statusCode >= 500:
		return errors.CategoryNetwork
	default:
		// Remaining 4xx: the service rejected this request.
		return errors.CategoryClassification
	}
}

// preview truncates long payloads for logs and error context.
func preview(s string) string {
	if len(s) > maxPreviewLen {
		return s[:maxPreviewLen] + "..."
	}
	return s
}
