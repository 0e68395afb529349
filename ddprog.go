package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// dd with status=progress rewrites one line in place on stderr:
//
//	1234567168 bytes (1.2 GB, 1.1 GiB) copied, 5.1 s, 242 MB/s
//
// The stream is read byte by byte because those lines end in \r, not \n;
// a buffered line read would coalesce them into one oversized read.

// parseCopied extracts the byte offset from a single status line. Lines
// lacking both the "bytes" and "copied" markers are diagnostic chatter
// and yield no offset. Digit grouping separators are stripped.
func parseCopied(line string) (int64, bool) {
	if !strings.Contains(line, "bytes") || !strings.Contains(line, "copied") {
		return 0, false
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(fields[0], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// watchProgress decodes byte offsets from a dd status stream and hands
// each one to report. It returns when the stream closes or errors, or as
// soon as the run flag is observed stopped.
func watchProgress(r io.Reader, run *runFlag, report func(int64)) {
	br := bufio.NewReader(r)
	var line []byte
	for run.Running() {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if b != '\r' && b != '\n' {
			line = append(line, b)
			continue
		}
		if n, ok := parseCopied(strings.TrimSpace(string(line))); ok {
			report(n)
		}
		line = line[:0]
	}
}
