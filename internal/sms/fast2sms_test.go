package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "9876543210"},
		{"+919876543210", "9876543210"},
		{"919876543210", "9876543210"},
		{"09876543210", "9876543210"},
		{"98765 43210", "9876543210"},
		{"+91 98765-43210", "9876543210"},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSendOTP(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewFast2SMSClient("test-key", server.URL)
	if err := c.SendOTP(context.Background(), "+919876543210", "123456"); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if got["route"] != "otp" {
		t.Errorf("route = %v, want otp", got["route"])
	}
	if got["numbers"] != "9876543210" {
		t.Errorf("numbers = %v, want normalized 9876543210", got["numbers"])
	}
	if got["variables_values"] != "123456" {
		t.Errorf("variables_values = %v", got["variables_values"])
	}
}

func TestSendOTP_RetriesOnce(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewFast2SMSClient("test-key", server.URL)
	if err := c.SendOTP(context.Background(), "9876543210", "123456"); err != nil {
		t.Fatalf("SendOTP after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSendOTP_NoAPIKey(t *testing.T) {
	c := NewFast2SMSClient("", "")
	if err := c.SendOTP(context.Background(), "9876543210", "123456"); err == nil {
		t.Error("expected error when API key missing")
	}
}
