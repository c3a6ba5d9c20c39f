package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// Extractor yields a face descriptor from raw image bytes, or none when no
// face is present in the image.
type Extractor interface {
	Detect(ctx context.Context, image []byte) (Descriptor, bool, error)
}

// HTTPExtractor calls the face-embedding model server over HTTP.
type HTTPExtractor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPExtractor returns an extractor client for the given model server base URL.
func NewHTTPExtractor(baseURL string) *HTTPExtractor {
	return &HTTPExtractor{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type detectRequest struct {
	Image string `json:"image"` // base64-encoded
}

type detectResponse struct {
	Descriptor []float64 `json:"descriptor"`
}

// Detect sends the image to the model server and returns the descriptor.
// The second return value is false when the server found no face.
func (c *HTTPExtractor) Detect(ctx context.Context, image []byte) (Descriptor, bool, error) {
	if c.BaseURL == "" {
		return nil, false, fmt.Errorf("face: extractor URL not configured")
	}
	raw, err := json.Marshal(detectRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("face: detect failed status=%d body=%s", resp.StatusCode, string(b))
	}
	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, err
	}
	if len(out.Descriptor) == 0 {
		return nil, false, nil
	}
	return Descriptor(out.Descriptor), true, nil
}
