package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("noreply@motorello.com", "a@b.com", "Hello", "<p>hi</p>"))
	for _, frag := range []string{
		"From: noreply@motorello.com\r\n",
		"To: a@b.com\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>hi</p>",
	} {
		if !strings.Contains(msg, frag) {
			t.Errorf("message missing %q:\n%s", frag, msg)
		}
	}
}

func TestSend(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewSMTPSender("smtp-relay.brevo.com", 587, "user", "pass", "noreply@motorello.com")
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}
	if err := s.Send(context.Background(), "a@b.com", "Code", "<p>123456</p>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp-relay.brevo.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@motorello.com" || len(gotTo) != 1 || gotTo[0] != "a@b.com" {
		t.Errorf("from=%q to=%v", gotFrom, gotTo)
	}
	if !strings.Contains(string(gotMsg), "123456") {
		t.Error("message body missing code")
	}
}

func TestSend_RetriesOnce(t *testing.T) {
	calls := 0
	s := NewSMTPSender("smtp-relay.brevo.com", 587, "user", "pass", "noreply@motorello.com")
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}
	if err := s.Send(context.Background(), "a@b.com", "Code", "body"); err != nil {
		t.Fatalf("Send after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSend_NotConfigured(t *testing.T) {
	s := NewSMTPSender("", 0, "", "", "")
	if err := s.Send(context.Background(), "a@b.com", "x", "y"); err == nil {
		t.Error("expected error when host missing")
	}
}

func TestOTPBody(t *testing.T) {
	body := OTPBody("654321", 10*time.Minute)
	if !strings.Contains(body, "654321") || !strings.Contains(body, "10 minutes") {
		t.Errorf("body = %s", body)
	}
}
