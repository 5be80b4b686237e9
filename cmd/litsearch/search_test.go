// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"short unchanged", "Deep Learning", "Deep Learning"},
		{"exactly at limit", strings.Repeat("a", 70), strings.Repeat("a", 70)},
		{"long ascii", strings.Repeat("a", 80), strings.Repeat("a", 67) + "..."},
		{"long multibyte", strings.Repeat("å", 80), strings.Repeat("å", 67) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateTitle(tt.title, 70)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
