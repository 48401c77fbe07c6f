package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stubRunner scripts responses per command name.
type stubRunner struct {
	responses map[string]func(args ...string) ([]byte, []byte, error)
	calls     []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if fn, ok := s.responses[name]; ok {
		return fn(args...)
	}
	return nil, nil, fmt.Errorf("unexpected command %q", name)
}

func TestAcquireText_EmbeddedFastPath(t *testing.T) {
	r := &stubRunner{responses: map[string]func(args ...string) ([]byte, []byte, error){
		"pdftotext": func(...string) ([]byte, []byte, error) {
			return []byte("No.SEP : 0301R0011223V000001 halaman satu\fhalaman dua rujukan\fhalaman tiga rekam medis\f"), nil, nil
		},
	}}
	a := NewAcquirer(Config{}, nil).WithRunner(r)

	res, err := a.AcquireText(context.Background(), "claim.pdf")
	if err != nil {
		t.Fatalf("AcquireText: %v", err)
	}
	if res.Method != "pdf-text" {
		t.Errorf("method = %q, want pdf-text", res.Method)
	}
	if len(res.Pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(res.Pages))
	}
	if !strings.Contains(res.Pages[0], "No.SEP") {
		t.Errorf("page 1 lost content: %q", res.Pages[0])
	}
	for _, c := range r.calls {
		if c == "tesseract" {
			t.Error("tesseract must not run when embedded text is present")
		}
	}
}

func TestAcquireText_OCRFallback(t *testing.T) {
	var prefix string
	r := &stubRunner{responses: map[string]func(args ...string) ([]byte, []byte, error){
		// short embedded text -> scanned document
		"pdftotext": func(...string) ([]byte, []byte, error) { return []byte(" \f \f"), nil, nil },
		"pdftoppm": func(args ...string) ([]byte, []byte, error) {
			prefix = args[len(args)-1]
			for i := 1; i <= 2; i++ {
				if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		},
		"tesseract": func(args ...string) ([]byte, []byte, error) {
			return []byte("teks hasil ocr " + filepath.Base(args[0])), nil, nil
		},
	}}
	a := NewAcquirer(Config{}, nil).WithRunner(r)

	res, err := a.AcquireText(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("AcquireText: %v", err)
	}
	if res.Method != "pdf-ocr" {
		t.Errorf("method = %q, want pdf-ocr", res.Method)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(res.Pages))
	}
	if dir := filepath.Dir(prefix); dir != "" {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("raster temp dir %q not cleaned up", dir)
		}
	}
}

func TestAcquireText_SecondaryRendererFallback(t *testing.T) {
	r := &stubRunner{responses: map[string]func(args ...string) ([]byte, []byte, error){
		"pdftotext": func(...string) ([]byte, []byte, error) { return []byte(""), nil, nil },
		"pdftoppm": func(...string) ([]byte, []byte, error) {
			return nil, []byte("syntax error"), errors.New("exit status 1")
		},
		"pdftocairo": func(args ...string) ([]byte, []byte, error) {
			prefix := args[len(args)-1]
			return nil, nil, os.WriteFile(prefix+"-1.png", []byte("png"), 0o644)
		},
		"tesseract": func(...string) ([]byte, []byte, error) { return []byte("halaman hasil scan"), nil, nil },
	}}
	a := NewAcquirer(Config{}, nil).WithRunner(r)

	res, err := a.AcquireText(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("AcquireText: %v", err)
	}
	if len(res.Pages) != 1 || res.Pages[0] != "halaman hasil scan" {
		t.Errorf("unexpected pages: %#v", res.Pages)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the failed primary rasterizer")
	}
}

func TestAcquireText_BadPageYieldsEmptyString(t *testing.T) {
	r := &stubRunner{responses: map[string]func(args ...string) ([]byte, []byte, error){
		"pdftotext": func(...string) ([]byte, []byte, error) { return []byte(""), nil, nil },
		"pdftoppm": func(args ...string) ([]byte, []byte, error) {
			prefix := args[len(args)-1]
			for i := 1; i <= 3; i++ {
				if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		},
		"tesseract": func(args ...string) ([]byte, []byte, error) {
			if strings.HasSuffix(args[0], "-2.png") {
				return nil, []byte("Error in boxClipToRectangle"), errors.New("exit status 1")
			}
			return []byte("ok"), nil, nil
		},
	}}
	a := NewAcquirer(Config{}, nil).WithRunner(r)

	res, err := a.AcquireText(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("AcquireText: %v", err)
	}
	want := []string{"ok", "", "ok"}
	if len(res.Pages) != len(want) {
		t.Fatalf("pages = %d, want %d", len(res.Pages), len(want))
	}
	for i := range want {
		if res.Pages[i] != want[i] {
			t.Errorf("page %d = %q, want %q", i+1, res.Pages[i], want[i])
		}
	}
}

func TestAcquireText_UnreadableFilePropagates(t *testing.T) {
	r := &stubRunner{responses: map[string]func(args ...string) ([]byte, []byte, error){
		"pdftotext": func(...string) ([]byte, []byte, error) {
			return nil, []byte("I/O Error"), errors.New("exit status 1")
		},
	}}
	a := NewAcquirer(Config{}, nil).WithRunner(r)
	if _, err := a.AcquireText(context.Background(), "missing.pdf"); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestPageCount(t *testing.T) {
	r := &stubRunner{responses: map[string]func(args ...string) ([]byte, []byte, error){
		"pdftotext": func(...string) ([]byte, []byte, error) { return []byte("a\fb\fc\f"), nil, nil },
	}}
	a := NewAcquirer(Config{}, nil).WithRunner(r)
	n, err := a.PageCount(context.Background(), "claim.pdf")
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 3 {
		t.Errorf("PageCount = %d, want 3", n)
	}
}
