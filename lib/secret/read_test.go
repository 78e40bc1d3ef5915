// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFromPath(t *testing.T) {
	directory := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", "sk-token", "sk-token"},
		{"trailing newline", "sk-token\n", "sk-token"},
		{"surrounding whitespace", "  sk-token \t\n", "sk-token"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(directory, test.name)
			if err := os.WriteFile(path, []byte(test.content), 0o600); err != nil {
				t.Fatal(err)
			}
			buffer, err := ReadFromPath(path)
			if err != nil {
				t.Fatalf("ReadFromPath: %v", err)
			}
			defer buffer.Close()
			if buffer.String() != test.want {
				t.Errorf("got %q, want %q", buffer.String(), test.want)
			}
		})
	}
}

func TestReadFromPathErrors(t *testing.T) {
	directory := t.TempDir()

	if _, err := ReadFromPath(filepath.Join(directory, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want os.ErrNotExist", err)
	}

	for name, content := range map[string]string{"empty": "", "whitespace": " \n\t\n"} {
		path := filepath.Join(directory, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadFromPath(path); !errors.Is(err, ErrEmpty) {
			t.Errorf("%s file: err = %v, want ErrEmpty", name, err)
		}
	}
}
