package compress

import (
	"bytes"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Algorithm
		wantErr bool
	}{
		{
			name:  "plain",
			input: "plain",
			want:  Plain,
		},
		{
			name:  "empty defaults to plain",
			input: "",
			want:  Plain,
		},
		{
			name:  "gzip",
			input: "gzip",
			want:  Gzip,
		},
		{
			name:  "xz",
			input: "xz",
			want:  XZ,
		},
		{
			name:  "lzma",
			input: "lzma",
			want:  LZMA,
		},
		{
			name:  "bz2",
			input: "bz2",
			want:  BZ2,
		},
		{
			name:  "mixed case",
			input: "GZip",
			want:  Gzip,
		},
		{
			name:  "surrounding whitespace",
			input: " xz ",
			want:  XZ,
		},
		{
			name:    "unknown algorithm",
			input:   "zstd",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "not-a-codec",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAlgorithm(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlgorithm(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		want      string
	}{
		{Plain, ""},
		{Gzip, ".gz"},
		{XZ, ".xz"},
		{LZMA, ".xz"},
		{BZ2, ".bz2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			if got := tt.algorithm.Suffix(); got != tt.want {
				t.Errorf("Suffix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewWriterProducesExpectedFormat(t *testing.T) {
	payload := []byte("-- dump output for compression round trip\n")

	tests := []struct {
		algorithm Algorithm
		magic     []byte
	}{
		{
			algorithm: Plain,
			magic:     payload,
		},
		{
			algorithm: Gzip,
			magic:     []byte{0x1f, 0x8b},
		},
		{
			algorithm: XZ,
			magic:     []byte{0xfd, '7', 'z', 'X', 'Z', 0x00},
		},
		{
			algorithm: LZMA,
			magic:     []byte{0xfd, '7', 'z', 'X', 'Z', 0x00},
		},
		{
			algorithm: BZ2,
			magic:     []byte{'B', 'Z', 'h'},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := tt.algorithm.NewWriter(&buf)
			if err != nil {
				t.Fatalf("NewWriter() error = %v", err)
			}
			if _, err := w.Write(payload); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			out := buf.Bytes()
			if len(out) < len(tt.magic) {
				t.Fatalf("output too short: %d bytes", len(out))
			}
			if !bytes.Equal(out[:len(tt.magic)], tt.magic) {
				t.Errorf("output header = %v, want %v", out[:len(tt.magic)], tt.magic)
			}
			if tt.algorithm == Plain && !bytes.Equal(out, payload) {
				t.Errorf("plain output = %q, want %q", out, payload)
			}
		})
	}
}

func TestNewWriterUnknownAlgorithm(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Algorithm("snappy").NewWriter(&buf); err == nil {
		t.Fatal("NewWriter() expected error for unknown algorithm")
	}
}
