package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// mismatchError reports a verification failure. The write itself
// completed; the read-back digest just doesn't match the image, meaning
// the copy may be incomplete or the device unreliable.
type mismatchError struct {
	ImageSum  string
	DeviceSum string
}

func (e *mismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: image %s, device %s (write may be incomplete or the device faulty)",
		e.ImageSum, e.DeviceSum)
}

// verifyImage digests the source image and the equivalent byte range read
// back from the device, and compares them. Only the first sector-rounded
// image length is read, so verification cost scales with the image, not
// the device.
func verifyImage(image string, dev Device, run *runFlag, out io.Writer, log logrus.FieldLogger) error {
	st, err := os.Stat(image)
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	imageSize := st.Size()
	sectors := (imageSize + 511) / 512

	fmt.Fprintf(out, "Verifying %s against %s ...\n", image, dev.Path)
	imageSum, err := fileDigest(image)
	if err != nil {
		return err
	}

	deviceSum, err := deviceDigest(dev.Path, sectors, imageSize, run, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  image  md5: %s\n", imageSum)
	fmt.Fprintf(out, "  device md5: %s\n", deviceSum)
	if imageSum != deviceSum {
		return &mismatchError{ImageSum: imageSum, DeviceSum: deviceSum}
	}
	log.Info("verification passed")
	fmt.Fprintln(out, "Verification passed: device matches the image.")
	return nil
}

// fileDigest runs the digest tool against a file path and returns the
// hex digest token.
func fileDigest(path string) (string, error) {
	outBytes, err := exec.Command("md5sum", path).Output()
	if err != nil {
		return "", fmt.Errorf("launch md5sum: %w", err)
	}
	sum := firstToken(string(outBytes))
	if sum == "" {
		return "", errors.New("md5sum produced no digest")
	}
	return sum, nil
}

// deviceDigest reads sectors*512 bytes from the device with dd, piping
// the data straight into md5sum while a background task decodes dd's
// progress stream. Both children are always waited on, on every path.
func deviceDigest(devPath string, sectors, total int64, run *runFlag, out io.Writer) (string, error) {
	dd := exec.Command("dd", "if="+devPath, "bs=512", "count="+strconv.FormatInt(sectors, 10), "status=progress")
	ddOut, err := dd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("dd stdout pipe: %w", err)
	}
	ddErr, err := dd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("dd stderr pipe: %w", err)
	}

	var sumBuf bytes.Buffer
	sum := exec.Command("md5sum")
	sum.Stdin = ddOut
	sum.Stdout = &sumBuf

	if err := dd.Start(); err != nil {
		return "", fmt.Errorf("launch dd: %w", err)
	}
	if err := sum.Start(); err != nil {
		_ = dd.Process.Kill()
		_ = dd.Wait()
		return "", fmt.Errorf("launch md5sum: %w", err)
	}

	ps := newProgressState(total)
	done := make(chan struct{})
	drawn := make(chan struct{})
	go func() {
		renderProgress(out, ps, done)
		close(drawn)
	}()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchProgress(ddErr, run, ps.set)
	}()

	ddWaitErr := dd.Wait()
	wg.Wait()
	sumWaitErr := sum.Wait()
	if ddWaitErr == nil {
		ps.set(total)
	}
	close(done)
	<-drawn

	if ddWaitErr != nil {
		var ee *exec.ExitError
		if errors.As(ddWaitErr, &ee) {
			return "", &exitError{
				Tool: "dd",
				Code: ee.ExitCode(),
				Hint: "run as root and check that the device is still connected",
			}
		}
		return "", fmt.Errorf("dd: %w", ddWaitErr)
	}
	if sumWaitErr != nil {
		return "", fmt.Errorf("md5sum: %w", sumWaitErr)
	}

	sumStr := firstToken(sumBuf.String())
	if sumStr == "" {
		return "", errors.New("md5sum produced no digest")
	}
	return sumStr, nil
}

// firstToken returns the first whitespace-delimited token; the digest
// tools print "<hex>  <name>".
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
