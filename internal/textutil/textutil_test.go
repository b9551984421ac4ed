// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package textutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 3, 1, 14, 5, 0, 0, time.UTC), "Mar 1, 2:05 PM"},
		{time.Date(2025, 12, 24, 0, 30, 0, 0, time.UTC), "Dec 24, 12:30 AM"},
		{time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC), "Jul 9, 12:00 PM"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.in))
	}
}

func TestShareURLs(t *testing.T) {
	assert.Equal(t,
		"https://nimbus.example/share?response=hello+world%21+%26+more",
		ShareResponseURL("https://nimbus.example/", "hello world! & more"))
	assert.Equal(t,
		"http://localhost:3000/share?code=fmt.Println%28%22hi%22%29",
		ShareCodeURL("http://localhost:3000", `fmt.Println("hi")`))
}

func TestCodeFilename(t *testing.T) {
	assert.Equal(t, "code.go", CodeFilename("go"))
	assert.Equal(t, "code.txt", CodeFilename(""))
	assert.Equal(t, "code.txt", CodeFilename("  "))
}
