package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// ddBlockSize is the copy block size handed to dd. Large enough that the
// USB bus, not syscall overhead, is the bottleneck.
const ddBlockSize = "4M"

// errNoDevices means the catalog came up empty. User-recoverable: plug a
// drive in and retry.
var errNoDevices = errors.New("no removable USB drives detected")

// exitError reports a copy or read subprocess that exited non-zero.
type exitError struct {
	Tool string
	Code int
	Hint string
}

func (e *exitError) Error() string {
	return fmt.Sprintf("%s failed (exit code %d): %s", e.Tool, e.Code, e.Hint)
}

// writeImage unmounts the target, supervises the dd copy, flushes buffers
// and optionally verifies the result. In dry-run mode it prints the exact
// command line that would have run and touches nothing.
func writeImage(req WriteRequest, run *runFlag, out io.Writer, log logrus.FieldLogger) error {
	st, err := os.Stat(req.Image)
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	imageSize := st.Size()

	log = log.WithFields(logrus.Fields{
		"op":     ulid.Make().String(),
		"image":  req.Image,
		"device": req.Target.Path,
	})
	log.WithField("bytes", imageSize).Debug("starting write")

	cmdline := fmt.Sprintf("dd if=%s of=%s bs=%s status=progress", req.Image, req.Target.Path, ddBlockSize)
	if req.DryRun {
		fmt.Fprintln(out, "dry-run: would run:")
		fmt.Fprintf(out, "  %s\n", cmdline)
		return nil
	}

	unmountTarget(req.Target, log)

	fmt.Fprintf(out, "Writing %s to %s ...\n", req.Image, req.Target.Path)
	log.Debug(cmdline)

	dd := exec.Command("dd", "if="+req.Image, "of="+req.Target.Path, "bs="+ddBlockSize, "status=progress")
	dd.Stdout = nil // copy output is irrelevant to the controller
	stderr, err := dd.StderrPipe()
	if err != nil {
		return fmt.Errorf("dd stderr pipe: %w", err)
	}
	if err := dd.Start(); err != nil {
		return fmt.Errorf("launch dd: %w", err)
	}

	ps := newProgressState(imageSize)
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
		watchProgress(stderr, run, ps.set)
	}()

	waitErr := dd.Wait()
	wg.Wait()
	if waitErr == nil {
		ps.set(imageSize)
	}
	close(done)
	<-drawn
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			return &exitError{
				Tool: "dd",
				Code: ee.ExitCode(),
				Hint: "run as root and check that the device is still connected",
			}
		}
		return fmt.Errorf("dd: %w", waitErr)
	}

	// Without an explicit flush, pulling the drive right after dd exits
	// can lose data still sitting in the page cache.
	fmt.Fprintln(out, "Flushing buffers (sync) ...")
	if err := exec.Command("sync").Run(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	log.Info("write complete")
	fmt.Fprintln(out, "Write complete.")

	if req.Verify {
		return verifyImage(req.Image, req.Target, run, out, log)
	}
	return nil
}
