package error

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type SpecError struct {
	Cause      error
	Detail     string
	FilePath   string
	SourceName string
	Row        int
	Col        int
}

func (e *SpecError) Error() string {
	var b strings.Builder
	if e.SourceName != "" {
		fmt.Fprintf(&b, "%v: ", e.SourceName)
	}
	if e.Row != 0 {
		fmt.Fprintf(&b, "%v:%v: ", e.Row, e.Col)
	}
	fmt.Fprintf(&b, "error: %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}

	line := readLine(e.FilePath, e.Row)
	if line != "" {
		fmt.Fprintf(&b, "\n    %v", line)
	}

	return b.String()
}

func readLine(filePath string, row int) string {
	if filePath == "" || row <= 0 {
		return ""
	}

	f, err := os.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	i := 1
	s := bufio.NewScanner(f)
	for s.Scan() {
		if i == row {
			return s.Text()
		}
		i++
	}

	return ""
}

type SpecErrors []*SpecError

func (e SpecErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v", e[0])
	for _, err := range e[1:] {
		fmt.Fprintf(&b, "\n%v", err)
	}
	return b.String()
}

// Manager is a sink for the diagnostics the analyzer emits while it keeps
// going. The zero value counts but discards messages; pass a writer to see
// them, or inspect Diagnostics from tests.
type Manager struct {
	w            io.Writer
	errorCount   int
	warningCount int
	diagnostics  []string
}

func NewManager(w io.Writer) *Manager {
	return &Manager{
		w: w,
	}
}

func (m *Manager) EmitError(format string, args ...interface{}) {
	m.errorCount++
	m.emit("error: "+format, args...)
}

func (m *Manager) EmitWarning(format string, args ...interface{}) {
	m.warningCount++
	m.emit("warning: "+format, args...)
}

func (m *Manager) emit(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	m.diagnostics = append(m.diagnostics, msg)
	if m.w != nil {
		fmt.Fprintln(m.w, msg)
	}
}

func (m *Manager) ErrorCount() int {
	return m.errorCount
}

func (m *Manager) WarningCount() int {
	return m.warningCount
}

func (m *Manager) Diagnostics() []string {
	return m.diagnostics
}
