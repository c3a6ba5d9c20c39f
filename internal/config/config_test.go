package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "motorello-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "motorello-auth")
	}
	if cfg.JWTAudience != "motorello-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "motorello-api")
	}
	if cfg.JWTAccessTTL != "1h" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "1h")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.JWTResetTTL != "15m" {
		t.Errorf("JWTResetTTL = %q, want %q", cfg.JWTResetTTL, "15m")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.Fast2SMSBaseURL != "https://www.fast2sms.com/dev/bulkV2" {
		t.Errorf("Fast2SMSBaseURL = %q, want default", cfg.Fast2SMSBaseURL)
	}
	if cfg.FaceMatchThreshold != 0.6 {
		t.Errorf("FaceMatchThreshold = %v, want 0.6", cfg.FaceMatchThreshold)
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for BCRYPT_COST=99")
	}
}

func TestLoad_DevOTPRefusedInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("OTP_RETURN_TO_CLIENT", "true")
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for dev OTP mode in production")
	}
}

func TestTTLParsing(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "30m", JWTRefreshTTL: "72h", JWTResetTTL: "10m"}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
	if got := cfg.RefreshTTL(); got != 72*time.Hour {
		t.Errorf("RefreshTTL = %v, want 72h", got)
	}
	if got := cfg.ResetTTL(); got != 10*time.Minute {
		t.Errorf("ResetTTL = %v, want 10m", got)
	}

	cfg = &Config{}
	if got := cfg.AccessTTL(); got != time.Hour {
		t.Errorf("AccessTTL default = %v, want 1h", got)
	}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("RefreshTTL default = %v, want 168h", got)
	}
	if got := cfg.ResetTTL(); got != 15*time.Minute {
		t.Errorf("ResetTTL default = %v, want 15m", got)
	}
}

func TestAuditKafkaBrokersList(t *testing.T) {
	cfg := &Config{AuditKafkaBrokers: "localhost:9092, broker2:9092 ,"}
	got := cfg.AuditKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("AuditKafkaBrokersList = %v", got)
	}
	cfg = &Config{}
	if got := cfg.AuditKafkaBrokersList(); got != nil {
		t.Errorf("AuditKafkaBrokersList on empty = %v, want nil", got)
	}
}
