package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// requireDigestTools skips the test unless the external dd/md5sum pair
// is installed.
func requireDigestTools(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"dd", "md5sum"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

// writeBlob creates a file of the given content under a fresh temp dir.
// Sizes are kept at sector multiples so the read-back covers exactly the
// image length.
func writeBlob(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerifyImageMatch(t *testing.T) {
	requireDigestTools(t)
	content := bytes.Repeat([]byte{0x5A}, 4*512)
	image := writeBlob(t, "image.iso", content)
	device := writeBlob(t, "device", content)

	dev := testDevice(1 << 30)
	dev.Path = device
	var out bytes.Buffer
	if err := verifyImage(image, dev, newRunFlag(), &out, discardLogger()); err != nil {
		t.Fatalf("verifyImage() error = %v", err)
	}
}

func TestVerifyImageTrailingDataIgnored(t *testing.T) {
	// Only the first image-length bytes of the device count; whatever
	// lies past them is leftover from previous use.
	requireDigestTools(t)
	content := bytes.Repeat([]byte{0x5A}, 4*512)
	image := writeBlob(t, "image.iso", content)
	device := writeBlob(t, "device", append(append([]byte{}, content...), bytes.Repeat([]byte{0xFF}, 8*512)...))

	dev := testDevice(1 << 30)
	dev.Path = device
	var out bytes.Buffer
	if err := verifyImage(image, dev, newRunFlag(), &out, discardLogger()); err != nil {
		t.Fatalf("verifyImage() error = %v", err)
	}
}

func TestVerifyImageMismatch(t *testing.T) {
	requireDigestTools(t)
	content := bytes.Repeat([]byte{0x5A}, 4*512)
	image := writeBlob(t, "image.iso", content)

	corrupted := append([]byte{}, content...)
	corrupted[1000] ^= 0xFF
	device := writeBlob(t, "device", corrupted)

	dev := testDevice(1 << 30)
	dev.Path = device
	var out bytes.Buffer
	err := verifyImage(image, dev, newRunFlag(), &out, discardLogger())
	if err == nil {
		t.Fatal("verifyImage() error = nil, want mismatch")
	}
	var me *mismatchError
	if !errors.As(err, &me) {
		t.Fatalf("verifyImage() error = %v, want *mismatchError", err)
	}
	if me.ImageSum == me.DeviceSum {
		t.Errorf("mismatchError carries equal sums %q", me.ImageSum)
	}
}

func TestVerifyImageUnreadableDevice(t *testing.T) {
	requireDigestTools(t)
	image := writeBlob(t, "image.iso", bytes.Repeat([]byte{0x5A}, 512))

	dev := testDevice(1 << 30)
	dev.Path = "/nonexistent/device"
	var out bytes.Buffer
	err := verifyImage(image, dev, newRunFlag(), &out, discardLogger())
	if err == nil {
		t.Fatal("verifyImage() error = nil, want dd failure")
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		t.Fatalf("verifyImage() error = %v, want *exitError", err)
	}
	if ee.Tool != "dd" {
		t.Errorf("exitError.Tool = %q, want dd", ee.Tool)
	}
}

func TestFirstToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"d41d8cd98f00b204e9800998ecf8427e  image.iso\n", "d41d8cd98f00b204e9800998ecf8427e"},
		{"  abc def", "abc"},
		{"", ""},
		{"   \n", ""},
	}
	for _, tt := range tests {
		if got := firstToken(tt.in); got != tt.want {
			t.Errorf("firstToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMismatchErrorMessage(t *testing.T) {
	e := &mismatchError{ImageSum: "aaaa", DeviceSum: "bbbb"}
	got := e.Error()
	for _, part := range []string{"checksum mismatch", "aaaa", "bbbb"} {
		if !bytes.Contains([]byte(got), []byte(part)) {
			t.Errorf("Error() = %q, missing %q", got, part)
		}
	}
}
