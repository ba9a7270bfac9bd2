package version

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"1.0", Version{Major: 1, Minor: 0}},
		{"1.1", Version{Major: 1, Minor: 1}},
		{"2.0", Version{Major: 2, Minor: 0}},
		{"10.23", Version{Major: 10, Minor: 23}},
		{"65535.65535", Version{Major: 65535, Minor: 65535}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if v != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, v, tt.want)
			}
			if v.String() != tt.input {
				t.Errorf("String() = %q, want %q", v.String(), tt.input)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []string{
		"",
		"1",
		"abc",
		"1.0.0",
		"1.x",
		"-1.0",
		"1.",
		".0",
		"65536.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", input)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0", "1.0", true},
		{"1.0", "1.1", true},
		{"1.9", "1.0", true},
		{"1.0", "2.0", false},
		{"2.1", "1.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a, err := Parse(tt.a)
			if err != nil {
				t.Fatal(err)
			}
			b, err := Parse(tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.Compatible(b); got != tt.want {
				t.Errorf("Compatible(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := b.Compatible(a); got != tt.want {
				t.Errorf("Compatible(%s, %s) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestCurrentParses(t *testing.T) {
	v, err := Parse(Current)
	if err != nil {
		t.Fatalf("Parse(Current) failed: %v", err)
	}
	want := Version{Major: 1, Minor: 0}
	if v != want {
		t.Errorf("Current = %v, want %v", v, want)
	}
}
