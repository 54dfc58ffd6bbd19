package utils

import (
	"testing"
)

func TestAudioContentType(t *testing.T) {
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)

	tests := []struct {
		declared string
		data     []byte
		want     string
		ok       bool
	}{
		{"audio/mpeg", nil, "audio/mpeg", true},
		{"Audio/WebM; codecs=opus", nil, "audio/webm", true},
		{"video/webm", nil, "video/webm", true},
		{"application/octet-stream", wav, "audio/wave", true},
		{"", []byte("hello world, plain text"), "text/plain", false},
	}
	for _, tt := range tests {
		got, ok := AudioContentType(tt.declared, tt.data)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AudioContentType(%q) = %q, %t; want %q, %t", tt.declared, got, ok, tt.want, tt.ok)
		}
	}
}
