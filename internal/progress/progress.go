// Package progress renders a terminal progress bar for a classification run
// and provides a writer that prints lines without corrupting the bar.
package progress

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Bar tracks assets processed in a run. The bar is drawn only when the
// underlying writer is a terminal; otherwise Bar passes lines straight through.
type Bar struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

// New creates a Bar over total items writing to out. A nil out means os.Stderr.
func New(out io.Writer, total int, description string) *Bar {
	if out == nil {
		out = os.Stderr
	}
	b := &Bar{out: out}
	if total > 0 && IsTerminal(out) {
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return b
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Enabled reports whether a bar is being drawn.
func (b *Bar) Enabled() bool {
	return b.bar != nil
}

// Describe updates the label shown next to the bar.
func (b *Bar) Describe(description string) {
	if b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Describe(description)
}

// Increment advances the bar by one item.
func (b *Bar) Increment() {
	if b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add(1)
}

// Println writes one line above the bar.
func (b *Bar) Println(line string) {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	_, _ = b.Write([]byte(line))
}

// Write clears the bar, writes p, and redraws the bar.
func (b *Bar) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return b.out.Write(p)
	}
	_ = b.bar.Clear()
	n, err := b.out.Write(p)
	if !bytes.HasSuffix(p, []byte("\n")) {
		_, _ = b.out.Write([]byte("\n"))
	}
	_ = b.bar.RenderBlank()
	return n, err
}

// Writer returns an io.Writer that writes through the bar.
func (b *Bar) Writer() io.Writer {
	return b
}

// Finish completes and clears the bar.
func (b *Bar) Finish() {
	if b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}
