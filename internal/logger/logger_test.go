package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger resets the logger to default state for test isolation
func resetLogger() {
	_ = Init(Options{})
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		logged  []string
		dropped []string
	}{
		{
			name:    "default is info",
			opts:    Options{},
			logged:  []string{"info", "warn", "error"},
			dropped: []string{"debug"},
		},
		{
			name:   "debug flag",
			opts:   Options{Debug: true},
			logged: []string{"debug", "info", "warn", "error"},
		},
		{
			name:    "quiet flag",
			opts:    Options{Quiet: true},
			logged:  []string{"error"},
			dropped: []string{"debug", "info", "warn"},
		},
		{
			name:    "quiet overrides debug",
			opts:    Options{Debug: true, Quiet: true},
			logged:  []string{"error"},
			dropped: []string{"debug", "info", "warn"},
		},
		{
			name:    "named level",
			opts:    Options{Level: "WARN"},
			logged:  []string{"warn", "error"},
			dropped: []string{"debug", "info"},
		},
		{
			name:    "debug flag overrides named level",
			opts:    Options{Level: "error", Debug: true},
			logged:  []string{"debug", "error"},
			dropped: []string{},
		},
	}

	emit := map[string]func(string, ...any){
		"debug": Debug,
		"info":  Info,
		"warn":  Warn,
		"error": Error,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.opts.Output = buf
			if err := Init(tt.opts); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			defer resetLogger()

			for level, fn := range emit {
				fn("message at " + level)
			}

			out := buf.String()
			for _, level := range tt.logged {
				if !strings.Contains(out, "message at "+level) {
					t.Errorf("expected %s message to be logged", level)
				}
			}
			for _, level := range tt.dropped {
				if strings.Contains(out, "message at "+level) {
					t.Errorf("expected %s message to be dropped", level)
				}
			}
		})
	}
}

func TestInit_UnknownLevel(t *testing.T) {
	if err := Init(Options{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Init(Options{JSON: true, Output: buf}); err != nil {
		t.Fatal(err)
	}
	defer resetLogger()

	Info("listing extracted", "url", "https://example.com/a", "fields", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON object, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "listing extracted" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["url"] != "https://example.com/a" {
		t.Errorf("url = %v", entry["url"])
	}
	if entry["fields"] != float64(12) {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	custom := slog.New(slog.NewTextHandler(buf, nil))
	if err := Init(Options{Logger: custom, Quiet: true}); err != nil {
		t.Fatal(err)
	}
	defer resetLogger()

	Info("routed")

	if !strings.Contains(buf.String(), "routed") {
		t.Error("expected custom logger to receive the message")
	}
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Init(Options{Output: buf}); err != nil {
		t.Fatal(err)
	}
	defer resetLogger()

	Component("crawler").Info("page fetched", "page", 3)

	out := buf.String()
	for _, want := range []string{"component=crawler", "page fetched", "page=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Init(Options{Debug: true, Output: buf}); err != nil {
		t.Fatal(err)
	}
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "debug with context")
	InfoContext(ctx, "info with context")
	WarnContext(ctx, "warn with context")
	ErrorContext(ctx, "error with context")

	for _, want := range []string{"debug with context", "info with context", "warn with context", "error with context"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q to be logged", want)
		}
	}
}
