package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"MAINT_FIRESTORE_PROJECT_ID": "propstack-dev",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.PubSub.ProjectID != "propstack-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.EventTopic != defaultEventTopic {
		t.Errorf("expected default event topic, got %s", cfg.PubSub.EventTopic)
	}
	if cfg.SLA.Emergency.Response != 30*time.Minute {
		t.Errorf("unexpected emergency response window: %s", cfg.SLA.Emergency.Response)
	}
	if cfg.SLA.Low.Resolution != 7*24*time.Hour {
		t.Errorf("unexpected low resolution window: %s", cfg.SLA.Low.Resolution)
	}
	if cfg.SLA.SweepInterval != defaultSweepInterval {
		t.Errorf("unexpected sweep interval: %s", cfg.SLA.SweepInterval)
	}
	if cfg.Maintenance.CostApprovalThreshold != 0 {
		t.Errorf("expected cost approval gate disabled by default, got %d", cfg.Maintenance.CostApprovalThreshold)
	}
	if cfg.Maintenance.DefaultCurrency != "USD" {
		t.Errorf("unexpected default currency: %s", cfg.Maintenance.DefaultCurrency)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Storage.SignedURLTTL != defaultSignedURLTTL {
		t.Errorf("unexpected signed URL TTL: %s", cfg.Storage.SignedURLTTL)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Environment)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := map[string]string{
		"MAINT_FIRESTORE_PROJECT_ID":    "propstack-prod",
		"MAINT_PUBSUB_PROJECT_ID":       "propstack-events",
		"MAINT_SERVER_PORT":             "9090",
		"MAINT_SLA_EMERGENCY_RESPONSE":  "15m",
		"MAINT_SLA_SWEEP_INTERVAL":      "1m",
		"MAINT_COST_APPROVAL_THRESHOLD": "50000",
		"MAINT_DEFAULT_CURRENCY":        "EUR",
		"MAINT_ENVIRONMENT":             "Production",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.PubSub.ProjectID != "propstack-events" {
		t.Errorf("expected explicit pubsub project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.SLA.Emergency.Response != 15*time.Minute {
		t.Errorf("unexpected emergency response: %s", cfg.SLA.Emergency.Response)
	}
	if cfg.SLA.SweepInterval != time.Minute {
		t.Errorf("unexpected sweep interval: %s", cfg.SLA.SweepInterval)
	}
	if cfg.Maintenance.CostApprovalThreshold != 50000 {
		t.Errorf("unexpected cost approval threshold: %d", cfg.Maintenance.CostApprovalThreshold)
	}
	if cfg.Maintenance.DefaultCurrency != "EUR" {
		t.Errorf("unexpected currency: %s", cfg.Maintenance.DefaultCurrency)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected lowercased environment, got %s", cfg.Environment)
	}
}

func TestLoadMissingProjectID(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	found := false
	for _, field := range validationErr.Fields() {
		if field == "Firestore.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Firestore.ProjectID in %v", validationErr.Fields())
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	contents := "# local overrides\nMAINT_FIRESTORE_PROJECT_ID=propstack-local\nexport MAINT_SERVER_PORT=\"8181\"\n"
	if err := os.WriteFile(envPath, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Firestore.ProjectID != "propstack-local" {
		t.Errorf("expected project from .env, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Server.Port != "8181" {
		t.Errorf("expected port from .env, got %s", cfg.Server.Port)
	}
}

func TestLoadInvalidSLAWindow(t *testing.T) {
	env := map[string]string{
		"MAINT_FIRESTORE_PROJECT_ID": "propstack-dev",
		"MAINT_SLA_HIGH_RESPONSE":    "-2h",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error for negative window")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, field := range validationErr.Fields() {
		if field == "SLA.High.Response" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected SLA.High.Response in %v", validationErr.Fields())
	}
}
