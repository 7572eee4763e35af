package handlers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestAcceptAll(t *testing.T) {
	if !(AcceptAll{}).CheckFile(context.Background(), "/does/not/matter", nil) {
		t.Error("AcceptAll.CheckFile() = false, want true")
	}
}

func TestMinAge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.tif")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	modTime := info.ModTime()

	tests := []struct {
		name    string
		elapsed time.Duration
		path    string
		want    bool
	}{
		{"fresh file", 100 * time.Millisecond, path, false},
		{"exactly old enough", time.Second, path, true},
		{"settled file", time.Minute, path, true},
		{"missing file", time.Minute, filepath.Join(dir, "gone.tif"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMinAge(time.Second)
			v.now = func() time.Time { return modTime.Add(tt.elapsed) }

			if got := v.CheckFile(context.Background(), tt.path, nil); got != tt.want {
				t.Errorf("CheckFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDoneMarker(t *testing.T) {
	outDir := t.TempDir()

	outputs, err := DoneMarker{}.ProcessFile(context.Background(), "/in/x.jpg", outDir, nil)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}

	want := filepath.Join(outDir, "x.jpg.done")
	if len(outputs) != 1 || outputs[0] != want {
		t.Fatalf("outputs = %v, want [%s]", outputs, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "/in/x.jpg" {
		t.Errorf("marker content = %q, want /in/x.jpg", data)
	}
}

func TestDoneMarker_MissingOutputDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := (DoneMarker{}).ProcessFile(context.Background(), "/in/x.jpg", missing, nil); err == nil {
		t.Error("ProcessFile() error = nil, want write error")
	}
}

func TestCommand_Expand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix quoting")
	}

	c := NewCommand("convert {INPUT} {OUTPUT_DIR}/thumb.png", 0)
	got := c.Expand("/in/a b.jpg", "/tmp/out")
	want := "convert '/in/a b.jpg' '/tmp/out'/thumb.png"
	if got != want {
		t.Errorf("Expand() = %q, want %q", got, want)
	}
}

func TestCommand_ProcessFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	tests := []struct {
		name     string
		template string
		timeout  time.Duration
		want     []string
		wantErr  string
	}{
		{
			name:     "reports outputs",
			template: "cp {INPUT} {OUTPUT_DIR}/copy.txt && echo copy.txt && echo && echo extra.txt",
			want:     []string{"copy.txt", "extra.txt"},
		},
		{
			name:     "no outputs",
			template: "true",
			want:     nil,
		},
		{
			name:     "failure includes stderr",
			template: "echo broken input >&2; exit 3",
			wantErr:  "broken input",
		},
		{
			name:     "timeout",
			template: "sleep 5",
			timeout:  50 * time.Millisecond,
			wantErr:  "timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inDir := t.TempDir()
			outDir := t.TempDir()
			input := filepath.Join(inDir, "it's.txt")
			if err := os.WriteFile(input, []byte("payload"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}

			outputs, err := NewCommand(tt.template, tt.timeout).ProcessFile(context.Background(), input, outDir, nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ProcessFile() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProcessFile() error = %v", err)
			}
			if strings.Join(outputs, ",") != strings.Join(tt.want, ",") {
				t.Errorf("outputs = %v, want %v", outputs, tt.want)
			}
		})
	}
}

func TestCommand_CopiesInput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	inDir := t.TempDir()
	outDir := t.TempDir()
	input := filepath.Join(inDir, "a.txt")
	if err := os.WriteFile(input, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewCommand("cp {INPUT} {OUTPUT_DIR}/b.txt && echo b.txt", time.Minute)
	if _, err := c.ProcessFile(context.Background(), input, outDir, nil); err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "b.txt"))
	if err != nil || string(data) != "payload" {
		t.Errorf("copied content = %q, err = %v", data, err)
	}
}
