package encoding

import "testing"

func TestUTF16RoundTrip(t *testing.T) {
	tests := []string{"", "RootNode", "Bip01 L Hand", "落ち武者"}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			encoded := UTF8ToUTF16(s)
			if len(encoded) != CodeUnits(s)*2 {
				t.Fatalf("encoded length %d, want %d", len(encoded), CodeUnits(s)*2)
			}
			if got := UTF16ToUTF8(encoded); got != s {
				t.Errorf("round trip: got %q, want %q", got, s)
			}
		})
	}
}

func TestNormalizeAssetPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Assets\\Textures\\skin.dds", "Assets/Textures/skin.dds"},
		{"\\Models\\a.ksm", "Models/a.ksm"},
		{"Models/./b.ksm", "Models/b.ksm"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeAssetPath(tt.in); got != tt.want {
				t.Errorf("NormalizeAssetPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in       string
		full     string
		nameOnly string
	}{
		{"dir1\\tex.dds", "tex.dds", "tex"},
		{"dir2/tex.dds", "tex.dds", "tex"},
		{"skin.png", "skin.png", "skin"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FileName(tt.in); got != tt.full {
				t.Errorf("FileName(%q) = %q, want %q", tt.in, got, tt.full)
			}
			if got := FileNameOnly(tt.in); got != tt.nameOnly {
				t.Errorf("FileNameOnly(%q) = %q, want %q", tt.in, got, tt.nameOnly)
			}
		})
	}
}
