package render

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry(map[string][]string{
		"application/pdf": {"zathura", "%f"},
		"image/*":         {"feh", "--scale-down", "%f"},
		"Text/HTML":       {"firefox"},
	})
}

func TestLookupExact(t *testing.T) {
	argv, err := testRegistry().Lookup("application/pdf")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if want := []string{"zathura", "%f"}; !reflect.DeepEqual(argv, want) {
		t.Errorf("Lookup = %v, want %v", argv, want)
	}
}

func TestLookupWildcard(t *testing.T) {
	argv, err := testRegistry().Lookup("image/png")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if argv[0] != "feh" {
		t.Errorf("Lookup = %v", argv)
	}
}

func TestLookupNormalizesType(t *testing.T) {
	r := testRegistry()

	argv, err := r.Lookup("APPLICATION/PDF; name=report.pdf")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if argv[0] != "zathura" {
		t.Errorf("Lookup = %v", argv)
	}

	argv, err = r.Lookup("text/html")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if argv[0] != "firefox" {
		t.Errorf("Lookup = %v, want registry key matched case-insensitively", argv)
	}
}

func TestLookupNoViewer(t *testing.T) {
	_, err := testRegistry().Lookup("audio/ogg")
	if err == nil {
		t.Fatal("Lookup succeeded, want error")
	}
	if !IsNoViewer(err) {
		t.Errorf("IsNoViewer(%v) = false", err)
	}
	if !strings.Contains(err.Error(), "audio/ogg") {
		t.Errorf("error %q does not name the type", err)
	}
}

func TestExpandArgv(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{
			"placeholder replaced",
			[]string{"zathura", "%f"},
			[]string{"zathura", "/tmp/a.pdf"},
		},
		{
			"placeholder inside word",
			[]string{"sh", "-c", "open %f"},
			[]string{"sh", "-c", "open /tmp/a.pdf"},
		},
		{
			"no placeholder appends path",
			[]string{"firefox"},
			[]string{"firefox", "/tmp/a.pdf"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandArgv(tt.argv, "/tmp/a.pdf")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expandArgv = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLaunchErrors(t *testing.T) {
	if err := Launch(nil, "/tmp/a.pdf"); err == nil {
		t.Error("Launch(nil) succeeded, want error")
	}

	err := Launch([]string{"mailcheck-no-such-viewer"}, "/tmp/a.pdf")
	if err == nil {
		t.Fatal("Launch with missing binary succeeded, want error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q", err)
	}
}

func TestWriteTemp(t *testing.T) {
	data := []byte("attachment payload")

	path, err := WriteTemp(data, "report.pdf")
	if err != nil {
		t.Fatalf("WriteTemp: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })

	if filepath.Ext(path) != ".pdf" {
		t.Errorf("path %q does not keep the extension", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("temp file content = %q", got)
	}
}
