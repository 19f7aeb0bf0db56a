package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a file descriptor attached to a terminal.
// Buffers and pipes are not.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar counts the candidate fits of a cluster-count sweep and shows
// the lowest BIC seen so far. Fits finish on different goroutines, so every
// method is safe for concurrent use.
//
//	Fitting candidates [=========>          ] 3/9  best n=4 (BIC 1532.10)
type ProgressBar struct {
	mu      sync.Mutex
	writer  io.Writer
	label   string
	width   int
	total   int
	done    int
	bestN   int
	bestBIC float64
}

// NewProgress creates a bar for total fits writing to stderr.
func NewProgress(total int, label string) *ProgressBar {
	return &ProgressBar{
		writer:  os.Stderr,
		label:   label,
		width:   30,
		total:   total,
		bestBIC: math.Inf(1),
	}
}

// SetWriter redirects output.
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// SetWidth sets the bar width in characters.
func (p *ProgressBar) SetWidth(width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if width > 0 {
		p.width = width
	}
}

// Observe records a finished fit. Equal scores keep the smaller count, the
// same rule the selector applies.
func (p *ProgressBar) Observe(clusters int, bic float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bic < p.bestBIC || (bic == p.bestBIC && clusters < p.bestN) {
		p.bestN, p.bestBIC = clusters, bic
	}
	p.step()
}

// Increment records a step that produced no score.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step()
}

// Done returns the number of recorded steps.
func (p *ProgressBar) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Best returns the lowest-BIC count observed, or 0 before any Observe.
func (p *ProgressBar) Best() (clusters int, bic float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bestN, p.bestBIC
}

// Finish ends the line on a terminal. It does not fill the bar: a sweep
// that stopped early shows how far it got.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if writerIsTTY(p.writer) {
		fmt.Fprintln(p.writer)
	}
}

// step must be called with the lock held.
func (p *ProgressBar) step() {
	if p.done < p.total {
		p.done++
	}
	line := p.line()
	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s", line)
		return
	}
	fmt.Fprintln(p.writer, line)
}

func (p *ProgressBar) line() string {
	filled := 0
	if p.total > 0 {
		filled = p.done * p.width / p.total
	}

	var sb strings.Builder
	sb.WriteString(p.label)
	sb.WriteString(" [")
	if filled > 0 {
		sb.WriteString(strings.Repeat("=", filled-1))
		sb.WriteString(">")
	}
	sb.WriteString(strings.Repeat(" ", p.width-filled))
	fmt.Fprintf(&sb, "] %d/%d", p.done, p.total)
	if p.bestN > 0 {
		fmt.Fprintf(&sb, "  best n=%d (BIC %.2f)", p.bestN, p.bestBIC)
	}
	return sb.String()
}

// Spinner animates while a step of unknown length runs, such as the final
// refit. On a non-terminal writer it prints the message once.
type Spinner struct {
	mu      sync.Mutex
	writer  io.Writer
	message string
	started time.Time
	stop    chan struct{}
	wg      sync.WaitGroup
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(message string) *Spinner {
	return &Spinner{writer: os.Stderr, message: message}
}

// SetWriter redirects output. Call before Start.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.started = time.Now()
	s.stop = make(chan struct{})

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.wg.Add(1)
	go s.spin(s.stop)
}

func (s *Spinner) spin(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s (%s)", spinnerFrames[frame%len(spinnerFrames)], s.message,
				time.Since(s.started).Truncate(time.Second))
			s.mu.Unlock()
		}
	}
}

// Stop halts the animation, waits for the drawing goroutine and clears the
// line. It returns the time since Start.
func (s *Spinner) Stop() time.Duration {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return 0
	}
	close(s.stop)
	s.stop = nil
	elapsed := time.Since(s.started)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+16))
	}
	return elapsed
}
