package cmd

import (
	"fmt"
	"os"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
