// Package vision talks to the engagement classifier.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Classifier decides whether a frame shows an engaged student.
type Classifier interface {
	Detect(ctx context.Context, frame []byte) (bool, error)
}

// HTTPClassifier posts the frame as multipart "image" and expects {"engaged": bool}.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClassifier{url: url, client: &http.Client{Timeout: timeout}}
}

type detectResponse struct {
	Engaged *bool `json:"engaged"`
}

func (c *HTTPClassifier) Detect(ctx context.Context, frame []byte) (bool, error) {
	if len(frame) == 0 {
		return false, fmt.Errorf("detect: empty frame")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return false, fmt.Errorf("detect: build form: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return false, fmt.Errorf("detect: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return false, fmt.Errorf("detect: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return false, fmt.Errorf("detect: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("detect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return false, fmt.Errorf("detect: classifier returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("detect: decode response: %w", err)
	}
	if out.Engaged == nil {
		return false, fmt.Errorf("detect: response missing engaged flag")
	}
	return *out.Engaged, nil
}
