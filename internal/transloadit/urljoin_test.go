package transloadit

import "testing"

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"cdn path", []string{"https://cdn.example/videos/", "abc123", "out.mp4"}, "https://cdn.example/videos/abc123/out.mp4"},
		{"redundant slashes", []string{"https://cdn.example/videos//", "/abc123/", "/out.mp4"}, "https://cdn.example/videos/abc123/out.mp4"},
		{"bare host", []string{"https://cdn.example", "abc123", "out.mp4"}, "https://cdn.example/abc123/out.mp4"},
		{"query from later part", []string{"https://cdn.example/thumbnail/", "abc", "t.jpg?v=2"}, "https://cdn.example/thumbnail/abc/t.jpg?v=2"},
		{"first query wins", []string{"https://cdn.example/a?x=1", "b?y=2"}, "https://cdn.example/a/b?x=1"},
		{"fragment kept", []string{"https://cdn.example/a#top", "b"}, "https://cdn.example/a/b#top"},
		{"relative only", []string{"videos/", "abc", "out.mp4"}, "videos/abc/out.mp4"},
		{"space in name untouched", []string{"https://cdn.example/v/", "id", "my clip.mp4"}, "https://cdn.example/v/id/my clip.mp4"},
		{"empty segment skipped", []string{"https://cdn.example/v/", "/", "out.mp4"}, "https://cdn.example/v/out.mp4"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := JoinURL(tc.parts...); got != tc.want {
				t.Fatalf("JoinURL(%q) = %q, want %q", tc.parts, got, tc.want)
			}
		})
	}
}
