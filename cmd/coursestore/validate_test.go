package main

import (
	"strings"
	"testing"
)

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfigFile(t, `
port: 8080
api:
  url: https://courses.example.com
  timeout: 5s
  headers:
    Authorization: Bearer token
log:
  level: debug
  format: text
`)

	output, err := execute(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Port:    8080",
		"API URL: https://courses.example.com",
		"Timeout: 5s",
		"Headers: 1",
		"Log:     debug (text)",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfigFile(t, "port: 8080\n")

	_, err := execute(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "api.url is required") {
		t.Errorf("error should mention 'api.url is required', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}
