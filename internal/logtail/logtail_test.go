package logtail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", lines, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		parsed    bool
		level     logrus.Level
		component string
		message   string
		errText   string
		fields    map[string]string
	}{
		{
			name:      "text formatter",
			line:      `time="2026-10-18T09:30:00Z" level=warning msg="save attempt failed" component=autosave error="api /api/spreadsheets/4 returned status 503" attempt=2 document_id=4`,
			parsed:    true,
			level:     logrus.WarnLevel,
			component: "autosave",
			message:   "save attempt failed",
			errText:   "api /api/spreadsheets/4 returned status 503",
			fields:    map[string]string{"attempt": "2", "document_id": "4"},
		},
		{
			name:      "json formatter",
			line:      `{"component":"server","level":"info","msg":"request","route":"GET /api/health","code":200,"time":"2026-10-18T09:30:00Z"}`,
			parsed:    true,
			level:     logrus.InfoLevel,
			component: "server",
			message:   "request",
			fields:    map[string]string{"route": "GET /api/health", "code": "200"},
		},
		{
			name:   "plain text",
			line:   "panic: runtime error",
			parsed: false,
			level:  logrus.InfoLevel,
		},
		{
			name:   "unknown level",
			line:   `level=loud msg=hi`,
			parsed: false,
			level:  logrus.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Parse(tt.line)
			if e.Parsed != tt.parsed {
				t.Fatalf("Parsed = %v, want %v", e.Parsed, tt.parsed)
			}
			if e.Raw != tt.line {
				t.Fatalf("Raw = %q, want original line", e.Raw)
			}
			if e.Level != tt.level || e.Component != tt.component || e.Message != tt.message || e.Error != tt.errText {
				t.Fatalf("Parse() = %+v", e)
			}
			if len(tt.fields) == 0 && len(e.Fields) == 0 {
				return
			}
			if !reflect.DeepEqual(e.Fields, tt.fields) {
				t.Fatalf("Fields = %v, want %v", e.Fields, tt.fields)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	warnAutosave := Parse(`level=warning msg=x component=autosave`)
	debugServer := Parse(`level=debug msg=y component=server`)
	raw := Parse("not a log line")

	tests := []struct {
		name   string
		filter Filter
		entry  Entry
		want   bool
	}{
		{"zero filter passes raw", Filter{}, raw, true},
		{"level filter drops raw", Filter{MinLevel: "info"}, raw, false},
		{"warn passes info threshold", Filter{MinLevel: "info"}, warnAutosave, true},
		{"debug below info threshold", Filter{MinLevel: "info"}, debugServer, false},
		{"component match ignores case", Filter{Components: []string{"AutoSave"}}, warnAutosave, true},
		{"component mismatch", Filter{Components: []string{"autosave"}}, debugServer, false},
		{"both must hold", Filter{Components: []string{"server"}, MinLevel: "info"}, debugServer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.Match(tt.entry)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Match() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := (Filter{MinLevel: "loud"}).Match(warnAutosave); err == nil {
		t.Fatal("Match() with invalid level succeeded")
	}
}

func TestFormat(t *testing.T) {
	line := `time="2026-10-18T09:30:00Z" level=warning msg="save attempt failed" component=autosave error=timeout attempt=2`
	ts, _ := time.Parse(time.RFC3339, "2026-10-18T09:30:00Z")
	want := ts.Local().Format("15:04:05") + " WARN  [autosave] save attempt failed error=timeout attempt=2"

	if got := Format(Parse(line), PlainStyles()); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
	if got := Format(Parse("raw output"), PlainStyles()); got != "raw output" {
		t.Fatalf("Format(raw) = %q", got)
	}
}

func TestFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetsync.log")
	if err := os.WriteFile(path, []byte("old line\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 64)
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, func(line string) { lines <- line })
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	// The tail may attach after the first writes, so keep appending until
	// one arrives.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for got := false; !got; {
		select {
		case line := <-lines:
			if line == "old line" {
				t.Fatal("Follow replayed existing content")
			}
			if line != "new line" {
				t.Fatalf("Follow line = %q, want new line", line)
			}
			got = true
		case <-ticker.C:
			if _, err := f.WriteString("new line\n"); err != nil {
				t.Fatalf("append: %v", err)
			}
		case <-deadline:
			t.Fatal("no line followed within 5s")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not stop after cancel")
	}
}
