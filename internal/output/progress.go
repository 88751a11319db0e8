package output

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/lcalzada-xor/GoReconDrop/internal/scan"
)

// ResourceStatus is the display state of one resource in the progress log.
type ResourceStatus int

const (
	ResourceRunning ResourceStatus = iota
	ResourceScanned
	ResourceSkipped
	ResourceFailed
)

// visibleEntries bounds how many resource lines are redrawn on each tick.
const visibleEntries = 8

type progressLog struct {
	mu    sync.Mutex
	out   io.Writer
	label string

	entries []*resourceEntry
	index   map[string]*resourceEntry

	total     int
	completed int
	skipped   int
	failed    int

	frames []rune
	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}

	startedAt time.Time
	prevLines int
}

type resourceEntry struct {
	url      string
	status   ResourceStatus
	message  string
	framePos int
}

// ProgressLog shows the resources of a scan as they are fetched, with a
// spinner per running fetch and a progress bar at the bottom. It implements
// scan.Observer.
type ProgressLog struct {
	log *progressLog
}

var _ scan.Observer = (*ProgressLog)(nil)

// NewProgressLog initialises a ProgressLog that writes to the provided writer.
// The label names the page being scanned.
func NewProgressLog(writer io.Writer, label string) *ProgressLog {
	if writer == nil {
		writer = io.Discard
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = "page"
	}

	pl := &progressLog{
		out:       writer,
		label:     label,
		frames:    []rune{'|', '/', '-', '\\'},
		index:     make(map[string]*resourceEntry),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		startedAt: time.Now(),
	}
	pl.ticker = time.NewTicker(120 * time.Millisecond)

	go pl.loop()

	return &ProgressLog{log: pl}
}

// ResourceStarted registers a resource fetch.
func (p *ProgressLog) ResourceStarted(rawURL string) {
	if p == nil || p.log == nil {
		return
	}
	p.log.start(rawURL)
}

// ResourceFinished records the outcome of a resource.
func (p *ProgressLog) ResourceFinished(rawURL string, outcome scan.Outcome, detail string) {
	if p == nil || p.log == nil {
		return
	}

	status := ResourceScanned
	switch outcome {
	case scan.OutcomeSkipped:
		status = ResourceSkipped
	case scan.OutcomeFailed:
		status = ResourceFailed
	}
	p.log.finish(rawURL, status, detail)
}

// Stop finalises the progress rendering and restores the terminal state.
func (p *ProgressLog) Stop() {
	if p == nil || p.log == nil {
		return
	}
	p.log.stop()
}

func (l *progressLog) start(rawURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[rawURL]; ok {
		return
	}

	l.total++
	entry := &resourceEntry{url: rawURL, status: ResourceRunning}
	l.entries = append(l.entries, entry)
	l.index[rawURL] = entry

	l.renderLocked()
}

func (l *progressLog) finish(rawURL string, status ResourceStatus, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.index[rawURL]
	if !ok || entry.status != ResourceRunning {
		return
	}

	entry.status = status
	entry.message = strings.TrimSpace(message)
	l.completed++
	switch status {
	case ResourceSkipped:
		l.skipped++
	case ResourceFailed:
		l.failed++
	}

	l.renderLocked()
}

func (l *progressLog) stop() {
	l.mu.Lock()
	if l.stopCh == nil {
		l.mu.Unlock()
		return
	}
	close(l.stopCh)
	l.stopCh = nil
	l.mu.Unlock()

	<-l.doneCh
}

func (l *progressLog) loop() {
	for {
		l.mu.Lock()
		stopCh := l.stopCh
		l.mu.Unlock()
		if stopCh == nil {
			l.finalise()
			return
		}

		select {
		case <-l.ticker.C:
			l.mu.Lock()
			for _, entry := range l.entries {
				if entry.status == ResourceRunning {
					entry.framePos = (entry.framePos + 1) % len(l.frames)
				}
			}
			l.renderLocked()
			l.mu.Unlock()
		case <-stopCh:
			l.finalise()
			return
		}
	}
}

func (l *progressLog) finalise() {
	l.ticker.Stop()
	l.mu.Lock()
	l.renderLocked()
	if l.prevLines > 0 {
		fmt.Fprint(l.out, "\n")
		l.prevLines = 0
	}
	l.mu.Unlock()
	close(l.doneCh)
}

func (l *progressLog) renderLocked() {
	if len(l.entries) == 0 {
		return
	}

	visible := l.entries
	if len(visible) > visibleEntries {
		visible = visible[len(visible)-visibleEntries:]
	}

	var buf bytes.Buffer

	if l.prevLines > 0 {
		fmt.Fprintf(&buf, "\033[%dF", l.prevLines)
	}
	buf.WriteString("\r\033[J")

	for i, entry := range visible {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "\r\033[K%s", l.renderEntry(entry))
	}

	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "\r\033[K%s", l.renderProgress())

	if _, err := l.out.Write(buf.Bytes()); err != nil {
		return
	}

	l.prevLines = len(visible)
}

func (l *progressLog) renderEntry(entry *resourceEntry) string {
	var prefix string
	switch entry.status {
	case ResourceRunning:
		prefix = fmt.Sprintf("[%c]", l.frames[entry.framePos])
	case ResourceScanned:
		prefix = "[✔]"
	case ResourceSkipped:
		prefix = "[-]"
	case ResourceFailed:
		prefix = "[✖]"
	default:
		prefix = "[ ]"
	}

	if entry.message != "" {
		return fmt.Sprintf("%s %s - %s", prefix, entry.url, entry.message)
	}
	return fmt.Sprintf("%s %s", prefix, entry.url)
}

func (l *progressLog) renderProgress() string {
	barWidth := 30
	ratio := 0.0
	if l.total > 0 {
		ratio = float64(l.completed) / float64(l.total)
		if ratio > 1 {
			ratio = 1
		}
	}
	filled := int(math.Round(ratio * float64(barWidth)))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	status := "ok"
	switch {
	case l.completed < l.total:
		status = "running"
	case l.failed > 0:
		status = fmt.Sprintf("%d failed", l.failed)
	}

	return fmt.Sprintf("[%s] %d/%d resources, %d skipped (%s, %s) %s",
		bar, l.completed, l.total, l.skipped, status, l.elapsed(), l.label)
}

func (l *progressLog) elapsed() string {
	elapsed := time.Since(l.startedAt).Round(100 * time.Millisecond)
	if elapsed > time.Minute {
		return fmt.Sprintf("%dm%ds", int(elapsed.Minutes()), int(elapsed.Seconds())%60)
	}
	return elapsed.String()
}
