package main

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// runFlag is the process-wide cancellation flag. It starts true and is
// flipped false exactly once, by the interrupt handler; every read loop
// polls it cooperatively.
type runFlag struct {
	ok atomic.Bool
}

func newRunFlag() *runFlag {
	f := &runFlag{}
	f.ok.Store(true)
	return f
}

func (f *runFlag) Stop()         { f.ok.Store(false) }
func (f *runFlag) Running() bool { return f.ok.Load() }

// progressState is the byte counter shared between the dd status reader
// (single writer) and the console renderer (read-only observer). The
// observed offset is monotonic and never exceeds the total.
type progressState struct {
	total int64
	off   atomic.Int64
}

func newProgressState(total int64) *progressState {
	return &progressState{total: total}
}

// set advances the offset. Stale or overshooting reports are clamped so
// observers never see a regression or more than total.
func (p *progressState) set(n int64) {
	if n > p.total {
		n = p.total
	}
	for {
		cur := p.off.Load()
		if n <= cur || p.off.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (p *progressState) offset() int64 { return p.off.Load() }
func (p *progressState) Total() int64  { return p.total }

// renderProgress redraws a single in-place progress line until done is
// closed, then prints the final state and a newline.
func renderProgress(out io.Writer, ps *progressState, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-done:
			drawProgressLine(out, ps, start)
			fmt.Fprintln(out)
			return
		case <-ticker.C:
			drawProgressLine(out, ps, start)
		}
	}
}

func drawProgressLine(out io.Writer, ps *progressState, start time.Time) {
	off := ps.offset()
	pct := 0
	if ps.total > 0 {
		pct = int(off * 100 / ps.total)
	}
	var rate float64
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		rate = float64(off) / elapsed
	}
	const width = 30
	filled := width * pct / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", width-filled)
	fmt.Fprintf(out, "\r  [%s] %3d%%  %s / %s  %s/s   ",
		bar, pct, humanBytes(off), humanBytes(ps.total), humanBytes(int64(rate)))
}

// humanBytes formats a byte count in decimal units, the way drive
// capacities are labelled.
func humanBytes(n int64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.1f GB", float64(n)/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.1f MB", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1f kB", float64(n)/1e3)
	}
	return fmt.Sprintf("%d B", n)
}
