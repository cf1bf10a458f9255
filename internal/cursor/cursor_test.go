package cursor

import (
	"errors"
	"testing"
	"time"
)

func TestFormatParseRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	paths := []string{
		"inbox/a.md",
		"/a/b.txt",
		"inbox/meeting 10:30.md",
		"inbox/Z:weird.txt",
		"inbox/trailing:",
		"inbox/ünïcode.png",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			s := Format(ts, p)
			got, err := PathOf(s)
			if err != nil {
				t.Fatalf("PathOf(%q) failed: %v", s, err)
			}
			if got != p {
				t.Errorf("round trip: expected %q, got %q", p, got)
			}
		})
	}
}

func TestFormatUsesMillisecondUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 5, 12, 0, 0, 123456789, loc)

	got := Format(ts, "inbox/x")
	want := "2024-03-05T10:00:00.123Z:inbox/x"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Cursor
		wantErr bool
	}{
		{
			name:  "daemon format without millis",
			input: "2026-02-01T15:37:06Z:inbox/file.md",
			want:  Cursor{CreatedAt: "2026-02-01T15:37:06Z", Path: "inbox/file.md"},
		},
		{
			name:  "legacy pipe separator",
			input: "2026-02-01T15:37:06Z|inbox/file.md",
			want:  Cursor{CreatedAt: "2026-02-01T15:37:06Z", Path: "inbox/file.md"},
		},
		{
			name:  "nested path",
			input: "2024-01-01T00:00:00.000Z:/a/b.txt",
			want:  Cursor{CreatedAt: "2024-01-01T00:00:00.000Z", Path: "/a/b.txt"},
		},
		{name: "missing separator", input: "inbox/file.md", wantErr: true},
		{name: "bad timestamp", input: "yesterdayZ:inbox/file.md", wantErr: true},
		{name: "empty path", input: "2026-02-01T15:37:06Z:", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	a, _ := Parse("2024-01-01T00:00:00.000Z:inbox/a")
	b, _ := Parse("2024-01-01T00:00:00.000Z:inbox/b")
	c, _ := Parse("2024-01-01T00:00:01Z:inbox/a")

	if Compare(a, b) != -1 {
		t.Error("same timestamp should order by path")
	}
	if Compare(c, b) != 1 {
		t.Error("later timestamp should sort newer regardless of path")
	}
	if Compare(a, a) != 0 {
		t.Error("cursor should equal itself")
	}

	// Millisecond and second precision of the same instant compare equal on time
	d, _ := Parse("2024-01-01T00:00:01.000Z:inbox/a")
	if Compare(c, d) != 0 {
		t.Error("precision differences should not affect ordering")
	}
}
