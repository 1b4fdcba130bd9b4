package countboard

import (
	"testing"
	"time"
)

func TestNewSource_Valid(t *testing.T) {
	src, err := NewSource("https://abc.example.co/rest/v1", "readings")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	if got := src.BaseURL(); got != "https://abc.example.co/rest/v1" {
		t.Errorf("BaseURL() = %q", got)
	}
	if got := src.Table(); got != "readings" {
		t.Errorf("Table() = %q", got)
	}
	if got := src.APIKey(); got != "" {
		t.Errorf("APIKey() = %q, want empty", got)
	}
	if got := src.Timeout(); got != 10*time.Second {
		t.Errorf("Timeout() = %v, want default 10s", got)
	}
}

func TestNewSource_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		table   string
	}{
		{"missing scheme", "abc.example.co/rest/v1", "readings"},
		{"unsupported scheme", "ftp://abc.example.co", "readings"},
		{"unparseable url", "http://abc example", "readings"},
		{"empty table", "https://abc.example.co/rest/v1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSource(tt.baseURL, tt.table); err == nil {
				t.Error("NewSource() should have returned an error")
			}
		})
	}
}

func TestNewSource_Options(t *testing.T) {
	src, err := NewSource("https://abc.example.co/rest/v1", "readings",
		WithAPIKey("secret"),
		WithTimeout(3*time.Second),
	)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	if got := src.APIKey(); got != "secret" {
		t.Errorf("APIKey() = %q, want %q", got, "secret")
	}
	if got := src.Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", got)
	}
}

func TestWithTimeout_RejectsNonPositive(t *testing.T) {
	if _, err := NewSource("https://abc.example.co", "readings", WithTimeout(0)); err == nil {
		t.Error("zero timeout should be rejected")
	}
	if _, err := NewSource("https://abc.example.co", "readings", WithTimeout(-time.Second)); err == nil {
		t.Error("negative timeout should be rejected")
	}
}
