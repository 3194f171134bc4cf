package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"archivepipe/internal/pipeline"
	"archivepipe/internal/util"
)

// Reporter drives a Driver's progress/metrics callbacks to terminal
// output, printing a single line that gets overwritten in place, and
// forwards process signals into the driver's cooperative abort flag.
type Reporter struct {
	mu       sync.Mutex
	driver   *pipeline.Driver
	quiet    bool
	lastLine int
}

// NewReporter wires progress/metrics callbacks into d and returns a
// Reporter that also holds d for signal-based cancellation.
func NewReporter(d *pipeline.Driver, quiet bool) *Reporter {
	r := &Reporter{driver: d, quiet: quiet}
	_ = d.SetProgress(r.onProgress)
	_ = d.SetProgressBytes(r.onProgressBytes)
	_ = d.SetMetrics(r.onMetrics)
	return r
}

func (r *Reporter) onProgress(fraction float64) error {
	r.render(fraction, fmt.Sprintf("%.1f%%", fraction*100))
	return nil
}

func (r *Reporter) onProgressBytes(processed int64) error {
	r.render(-1, util.Sizeify(processed))
	return nil
}

func (r *Reporter) render(fraction float64, info string) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	const barWidth = 30
	var bar string
	if fraction < 0 {
		bar = strings.Repeat("?", barWidth)
	} else {
		filled := min(int(fraction*float64(barWidth)), barWidth)
		bar = strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	}

	line := fmt.Sprintf("\r[%s] %s", bar, info)
	if len(line) < r.lastLine {
		line += strings.Repeat(" ", r.lastLine-len(line))
	}
	r.lastLine = len(line)
	fmt.Fprint(os.Stderr, line)
}

func (r *Reporter) onMetrics(m pipeline.Metrics) {
	if r.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "\ndone: ratio=%.3f elapsed=%s input=%s output=%s\n",
		m.Ratio, util.Timeify(int(m.Elapsed/time.Second)), util.Sizeify(m.InputSize), util.Sizeify(m.OutputSize))
}

// Cancel requests cooperative cancellation of the wrapped driver.
func (r *Reporter) Cancel() {
	r.driver.Abort()
}

// Finish moves the cursor past the progress line.
func (r *Reporter) Finish() {
	if !r.quiet {
		fmt.Fprintln(os.Stderr)
	}
}

// PrintError prints an error to stderr.
func (r *Reporter) PrintError(format string, args ...any) {
	if !r.quiet && r.lastLine > 0 {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
