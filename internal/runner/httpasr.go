// Go Pattern: grounded on the teacher's services/audio.Transcriber — a
// timeout'd http.Client posting a multipart upload and decoding a JSON
// response. Generalized from a hard-coded Whisper-API endpoint to a
// configurable ASR_ENDPOINT so any compatible runner can sit behind it.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/voicescribe/transcription-core/internal/models"
)

// HTTPTranscriber posts the audio file to a configured HTTP ASR endpoint
// and expects back a JSON array of segments.
type HTTPTranscriber struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPTranscriber creates a Transcriber backed by an external HTTP ASR service.
func NewHTTPTranscriber(endpoint, apiKey string) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			// Speech recognition on long files can take a while.
			Timeout: 10 * time.Minute,
		},
	}
}

type httpASRResponse struct {
	Segments []models.Segment `json:"segments"`
}

// Transcribe uploads the file at path and polls cancelCheck between the
// upload and decode stages — the HTTP call itself is a single blocking
// round trip, so cooperative cancellation here is best-effort at stage
// boundaries, exactly as spec.md §5 describes.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, path, hotword, language string,
	cancelCheck CancelCheck, progress ProgressCallback) ([]models.Segment, error) {

	if t.endpoint == "" {
		return nil, fmt.Errorf("ASR endpoint not configured")
	}
	if cancelCheck() {
		return nil, Cancelled{}
	}

	progress("uploading", 5, "uploading audio to recognizer", 0)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", path)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy audio data: %w", err)
	}
	_ = writer.WriteField("hotword", hotword)
	_ = writer.WriteField("language", language)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	progress("recognizing", 40, "running speech recognition", 0)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ASR request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ASR response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ASR service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if cancelCheck() {
		return nil, Cancelled{}
	}

	var parsed httpASRResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ASR response: %w", err)
	}

	progress("finalizing", 95, "recognition complete", 0)
	return parsed.Segments, nil
}
