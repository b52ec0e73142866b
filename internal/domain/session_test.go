package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "short message",
			message: "How do refunds work?",
			want:    "How do refunds work?",
		},
		{
			name:    "collapses whitespace",
			message: "  How\n\tdo   refunds  work?  ",
			want:    "How do refunds work?",
		},
		{
			name:    "truncates long message",
			message: strings.Repeat("a", 80),
			want:    strings.Repeat("a", 50) + "...",
		},
		{
			name:    "empty message falls back",
			message: "   ",
			want:    DefaultSessionTitle,
		},
		{
			name:    "truncates by runes not bytes",
			message: strings.Repeat("한", 60),
			want:    strings.Repeat("한", 50) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromMessage(tt.message))
		})
	}
}
