package filetype

import (
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		expected Kind
	}{
		{"IMG_0001.jpg", KindJPEG},
		{"IMG_0001.JPG", KindJPEG},
		{"IMG_0001.jpeg", KindJPEG},
		{"IMG_0001.heic", KindJPEG},
		{"IMG_0001.cr2", KindRAW},
		{"IMG_0001.NEF", KindRAW},
		{"IMG_0001.dng", KindRAW},
		{"IMG_0001.json", KindSidecar},
		{"notes.txt", KindOther},
		{"IMG_0001", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.name); got != tt.expected {
				t.Errorf("KindOf(%q) = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"IMG_0001.jpg", "IMG_0001"},
		{"2023/trip/IMG_0001.cr2", "IMG_0001"},
		{"noext", "noext"},
		{"dots.in.name.jpg", "dots.in.name"},
	}

	for _, tt := range tests {
		if got := BaseName(tt.path); got != tt.expected {
			t.Errorf("BaseName(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestMimeType(t *testing.T) {
	if got := MimeType("a.jpg"); got != "image/jpeg" {
		t.Errorf("MimeType(a.jpg) = %q, want image/jpeg", got)
	}
	if got := MimeType("a.xyz"); got != "application/octet-stream" {
		t.Errorf("MimeType(a.xyz) = %q, want application/octet-stream", got)
	}
}

func TestIsVariant(t *testing.T) {
	if !IsVariant("a.jpg") || !IsVariant("a.arw") {
		t.Error("jpg and arw should be variants")
	}
	if IsVariant("a.json") || IsVariant("a.txt") {
		t.Error("sidecar and unknown files are not variants")
	}
}
