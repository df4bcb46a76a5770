package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSentinelRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "absolute target", target: "/etc/hosts"},
		{name: "relative target", target: "relative/target"},
		{name: "empty target", target: ""},
		{name: "target with spaces and colons", target: "/path with spaces/and:colons"},
		{name: "long target", target: strings.Repeat("/very/long/segment", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeSentinel(encodeSentinel(tt.target))
			if !ok {
				t.Fatalf("decode(encode(%q)) not recognized as sentinel", tt.target)
			}
			if got != tt.target {
				t.Errorf("Expected target %q, got %q", tt.target, got)
			}
		})
	}
}

func TestDecodeSentinelRejectsNonSentinels(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{
			name:  "empty input",
			input: []byte{},
		},
		{
			name:  "magic without separator",
			input: []byte("NLINKFS"),
		},
		{
			name:  "magic with wrong separator",
			input: []byte("NLINKFSx/etc/hosts"),
		},
		{
			name:  "lowercase magic",
			input: []byte("nlinkfs\n/etc/hosts"),
		},
		{
			name:  "truncated magic",
			input: []byte("NLIN"),
		},
		{
			name:  "ordinary file content",
			input: []byte("hello world\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if target, ok := decodeSentinel(tt.input); ok {
				t.Errorf("Expected rejection, got target %q", target)
			}
		})
	}
}

func TestDecodeSentinelEmptyTarget(t *testing.T) {
	// Magic plus separator and nothing else is a valid sentinel with an
	// empty target.
	target, ok := decodeSentinel([]byte("NLINKFS\n"))
	if !ok {
		t.Fatal("Expected a valid sentinel")
	}
	if target != "" {
		t.Errorf("Expected empty target, got %q", target)
	}
}

func TestReadSentinelDegradesOnFailure(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sentinel-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("missing file", func(t *testing.T) {
		if _, ok := readSentinel(filepath.Join(tempDir, "missing.LNK")); ok {
			t.Error("Expected missing file to degrade to not-a-sentinel")
		}
	})

	t.Run("directory instead of file", func(t *testing.T) {
		dirPath := filepath.Join(tempDir, "dir.LNK")
		if err := os.Mkdir(dirPath, 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if _, ok := readSentinel(dirPath); ok {
			t.Error("Expected directory to degrade to not-a-sentinel")
		}
	})

	t.Run("truncated sentinel", func(t *testing.T) {
		path := filepath.Join(tempDir, "short.LNK")
		if err := os.WriteFile(path, []byte("NLINK"), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}
		if _, ok := readSentinel(path); ok {
			t.Error("Expected truncated file to degrade to not-a-sentinel")
		}
	})

	t.Run("valid sentinel", func(t *testing.T) {
		path := filepath.Join(tempDir, "ok.LNK")
		if err := os.WriteFile(path, encodeSentinel("/etc/hosts"), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}
		target, ok := readSentinel(path)
		if !ok || target != "/etc/hosts" {
			t.Errorf("Expected target /etc/hosts, got %q (ok=%v)", target, ok)
		}
	})
}

func TestIsSentinelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "plain sentinel name",
			input:    "a.LNK",
			expected: true,
		},
		{
			name:     "suffix only is not a candidate",
			input:    ".LNK",
			expected: false,
		},
		{
			name:     "lowercase suffix",
			input:    "a.lnk",
			expected: false,
		},
		{
			name:     "suffix in the middle",
			input:    "a.LNK.txt",
			expected: false,
		},
		{
			name:     "no suffix",
			input:    "plain.txt",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSentinelName(tt.input); got != tt.expected {
				t.Errorf("isSentinelName(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStripSentinelSuffix(t *testing.T) {
	if got := stripSentinelSuffix("a.LNK"); got != "a" {
		t.Errorf("Expected %q, got %q", "a", got)
	}
	if got := stripSentinelSuffix("nested.name.LNK"); got != "nested.name" {
		t.Errorf("Expected %q, got %q", "nested.name", got)
	}
}

func TestTruncateTarget(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		size     int
		expected string
	}{
		{
			name:     "target longer than capacity",
			target:   "01234567890123456789",
			size:     5,
			expected: "01234",
		},
		{
			name:     "target shorter than capacity",
			target:   "/etc/hosts",
			size:     100,
			expected: "/etc/hosts",
		},
		{
			name:     "target equals capacity",
			target:   "/etc",
			size:     4,
			expected: "/etc",
		},
		{
			name:     "zero capacity yields empty result",
			target:   "/etc/hosts",
			size:     0,
			expected: "",
		},
		{
			name:     "negative capacity yields empty result",
			target:   "/etc/hosts",
			size:     -1,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateTarget(tt.target, tt.size); got != tt.expected {
				t.Errorf("truncateTarget(%q, %d) = %q, expected %q",
					tt.target, tt.size, got, tt.expected)
			}
		})
	}
}
