package drivers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalFSDriver_SaveGetDelete(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "localfs-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	driver, err := NewLocalFSDriver(tempDir, "/api/uploads")
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	ctx := context.Background()
	key := "proofs/3f1c2a/signature.png"
	content := []byte("test content")

	// Test Save
	err = driver.Save(ctx, key, bytes.NewReader(content), "image/png")
	if err != nil {
		t.Errorf("Save failed: %v", err)
	}

	// The key's directory structure maps straight onto the base dir.
	fullPath := filepath.Join(tempDir, "proofs", "3f1c2a", "signature.png")
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		t.Errorf("file not found at path: %s", fullPath)
	}

	// Test Get
	reader, err := driver.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Errorf("read failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("unexpected content: %s", got)
	}

	// Verify URL
	url, err := driver.GenerateURL(ctx, key, 0)
	if err != nil {
		t.Errorf("GenerateURL failed: %v", err)
	}
	if !strings.HasSuffix(url, key) || !strings.Contains(url, "/api/uploads") {
		t.Errorf("unexpected URL: %s", url)
	}

	// Test Delete
	err = driver.Delete(ctx, key)
	if err != nil {
		t.Errorf("Delete failed: %v", err)
	}

	if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
		t.Error("file still exists after deletion")
	}
}

func TestLocalFSDriver_RejectsEscapingKeys(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "localfs-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	driver, err := NewLocalFSDriver(tempDir, "")
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"../outside.txt", "/etc/passwd"} {
		if err := driver.Save(ctx, key, bytes.NewReader([]byte("x")), "text/plain"); err == nil {
			t.Errorf("expected Save to reject key %q", key)
		}
		if _, err := driver.Get(ctx, key); err == nil {
			t.Errorf("expected Get to reject key %q", key)
		}
	}
}
