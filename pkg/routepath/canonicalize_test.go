package routepath

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"root", "/", "/"},
		{"simple", "/about", "/about"},
		{"trailing slash", "/about/", "/about"},
		{"query dropped", "/about?tab=1", "/about"},
		{"fragment dropped", "/about#team", "/about"},
		{"collapse slashes", "/blog//post", "/blog/post"},
		{"single dot", "/blog/./post", "/blog/post"},
		{"double dot", "/blog/posts/../other", "/blog/other"},
		{"double dot to root", "/blog/../", "/"},
		{"valid escape", "/path/%20space", "/path/%20space"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrInvalidPath},
		{"relative", "about", ErrInvalidPath},
		{"absolute url", "https://evil.example/x", ErrInvalidPath},
		{"protocol relative", "//evil.example/x", ErrInvalidPath},
		{"backslash", "/path\\x", ErrBackslashInPath},
		{"null literal", "/a/\x00", ErrNullByteInPath},
		{"null encoded", "/a/%00", ErrNullByteInPath},
		{"bad escape", "/a/%GG", ErrInvalidPercentEscape},
		{"short escape", "/a/%2", ErrInvalidPercentEscape},
		{"escape root", "/../secret", ErrPathEscapesRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Clean(tt.input); err != tt.wantErr {
				t.Errorf("Clean(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
