package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/clkernel/internal/kernel"
)

func TestNewArtifactFromSource(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "k.cl"), []byte("#include \"n.h\"\nint x;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "n.h"), []byte("#define N 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := kernel.NewLoader(kernel.Options{Root: root, Getenv: func(string) string { return "" }})
	src, err := loader.Load("k.cl")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	a := NewArtifact(src)
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if a.Kernel != "k.cl" || a.Size != src.Len() || string(a.Source) != src.String() {
		t.Errorf("Artifact does not mirror source: %+v", a)
	}
	if len(a.Includes) != 1 {
		t.Fatalf("Expected 1 include, got %d", len(a.Includes))
	}
	inc := a.Includes[0]
	if inc.Target != "n.h" || inc.Line != 1 || inc.Size != len("#define N 4\n") {
		t.Errorf("Include record mismatch: %+v", inc)
	}

	info := a.ToInfo()
	if info.Includes != 1 || info.Kernel != "k.cl" {
		t.Errorf("Info mismatch: %+v", info)
	}
}

func TestArtifactValidate(t *testing.T) {
	a := createTestArtifact("k.cl")
	if err := a.Validate(); err != nil {
		t.Fatalf("Valid artifact rejected: %v", err)
	}

	a.Timestamp = time.Time{}
	if err := a.Validate(); err == nil {
		t.Error("Expected error for zero timestamp")
	}
}
