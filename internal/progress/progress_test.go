package progress

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/schollz/progressbar/v3"
)

func TestBarPassThroughWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf, 3, "Classifying")

	if b.Enabled() {
		t.Fatal("bar should not render into a non-terminal writer")
	}

	b.Increment()
	b.Describe("hero.png")
	b.Println(`"bg.jpg" could not be processed after 3 attempts, skipping`)
	fmt.Fprint(b.Writer(), "log line\n")
	b.Finish()

	want := "\"bg.jpg\" could not be processed after 3 attempts, skipping\nlog line\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true, want false")
	}
}

func TestNewZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	if New(&buf, 0, "x").Enabled() {
		t.Error("bar with zero items should be disabled")
	}
}

func TestBarWritesLinesAroundDrawnBar(t *testing.T) {
	var buf bytes.Buffer
	b := &Bar{out: &buf, bar: progressbar.NewOptions(3, progressbar.OptionSetWriter(&buf))}

	b.Increment()
	b.Println("skip line")

	out := buf.String()
	i := strings.Index(out, "skip line\n")
	if i < 0 {
		t.Fatalf("output %q does not contain the whole line", out)
	}
	if !strings.Contains(out[:i], "33%") {
		t.Errorf("bar not drawn before the line: %q", out[:i])
	}
	if !strings.Contains(out[i:], "33%") {
		t.Errorf("bar not redrawn after the line: %q", out[i:])
	}

	buf.Reset()
	n, err := b.Write([]byte("no newline"))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if n != len("no newline") {
		t.Errorf("Write() = %d, want %d", n, len("no newline"))
	}
	out = buf.String()
	i = strings.Index(out, "no newline\n")
	if i < 0 {
		t.Fatalf("output %q is missing the terminating newline", out)
	}
	if !strings.Contains(out[i:], "33%") {
		t.Errorf("bar not redrawn after the unterminated line: %q", out[i:])
	}
}
