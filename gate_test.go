package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempImage(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.iso")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAA}, int(size)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testDevice(size int64) Device {
	return Device{
		Name:      "sdb",
		Path:      "/dev/sdb",
		Size:      size,
		Model:     "Cruzer Blade",
		Removable: true,
		Transport: "usb",
	}
}

func TestConfirmWriteSizeMismatch(t *testing.T) {
	image := tempImage(t, 4096)
	in := bufio.NewReader(strings.NewReader("y\ny\n"))
	var out bytes.Buffer

	ok, err := confirmWrite(in, &out, image, testDevice(1024))
	if err != nil {
		t.Fatalf("confirmWrite() error = %v", err)
	}
	if ok {
		t.Error("confirmWrite() = true, want false on oversized image")
	}
	if !strings.Contains(out.String(), "refusing to write") {
		t.Errorf("output %q does not explain the refusal", out.String())
	}
	// The refusal must happen before any prompt is offered.
	if line, _ := in.ReadString('\n'); line != "y\n" {
		t.Errorf("input consumed before refusal: next line %q, want %q", line, "y\n")
	}
}

func TestConfirmWriteMissingImage(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(""))
	var out bytes.Buffer
	ok, err := confirmWrite(in, &out, filepath.Join(t.TempDir(), "absent.iso"), testDevice(1<<30))
	if err == nil {
		t.Fatal("confirmWrite() error = nil, want stat error")
	}
	if ok {
		t.Error("confirmWrite() = true on missing image")
	}
}

func TestConfirmWriteAnswers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"both yes", "y\ny\n", true},
		{"spelled out", "yes\nYES\n", true},
		{"first no", "n\n", false},
		{"empty defaults to no", "\n", false},
		{"second no", "y\nn\n", false},
		{"second empty", "y\n\n", false},
		{"garbage", "sure\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := tempImage(t, 1024)
			in := bufio.NewReader(strings.NewReader(tt.input))
			var out bytes.Buffer
			got, err := confirmWrite(in, &out, image, testDevice(1<<30))
			if err != nil {
				t.Fatalf("confirmWrite() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("confirmWrite(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfirmWriteShortCircuits(t *testing.T) {
	image := tempImage(t, 1024)
	in := bufio.NewReader(strings.NewReader("n\ny\n"))
	var out bytes.Buffer
	ok, err := confirmWrite(in, &out, image, testDevice(1<<30))
	if err != nil {
		t.Fatalf("confirmWrite() error = %v", err)
	}
	if ok {
		t.Error("confirmWrite() = true after first refusal")
	}
	// A refused first prompt must not consume the second line.
	if line, _ := in.ReadString('\n'); line != "y\n" {
		t.Errorf("second prompt was read after refusal: next line %q, want %q", line, "y\n")
	}
}

func TestPromptLineDefault(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{"answer given", "custom\n", "fallback", "custom"},
		{"empty uses default", "\n", "fallback", "fallback"},
		{"whitespace trimmed", "  spaced  \n", "", "spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := bufio.NewReader(strings.NewReader(tt.input))
			var out bytes.Buffer
			got, err := promptLine(in, &out, "Path", tt.def)
			if err != nil {
				t.Fatalf("promptLine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("promptLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
