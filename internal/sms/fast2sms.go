// Package sms delivers one-time codes over SMS via the Fast2SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	retryBackoff   = 500 * time.Millisecond
)

// Sender delivers a one-time code to a phone number.
type Sender interface {
	SendOTP(ctx context.Context, phone, otp string) error
}

// Fast2SMSClient sends OTP SMS via the Fast2SMS bulk API.
// See https://docs.fast2sms.com/ (route=otp).
type Fast2SMSClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewFast2SMSClient returns a client that uses the given API key and optional base URL.
func NewFast2SMSClient(apiKey, baseURL string) *Fast2SMSClient {
	if baseURL == "" {
		baseURL = "https://www.fast2sms.com/dev/bulkV2"
	}
	return &Fast2SMSClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NormalizePhone reduces a phone number to the 10-digit local form the
// gateway expects: non-digits are dropped, then a 91 country prefix or a
// single leading zero is stripped.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	} else if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	return digits
}

// SendOTP sends the OTP to the given phone number (route=otp). The number is
// normalized before sending. Does not log the OTP. A transport failure is
// retried once.
func (c *Fast2SMSClient) SendOTP(ctx context.Context, phone, otp string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	body := map[string]interface{}{
		"route":            "otp",
		"numbers":          NormalizePhone(phone),
		"variables_values": otp,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	err = c.post(ctx, raw)
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
	}
	return c.post(ctx, raw)
}

func (c *Fast2SMSClient) post(ctx context.Context, raw []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
