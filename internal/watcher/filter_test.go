package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFileFilter_EmptyUsesDefaults(t *testing.T) {
	assert.Equal(t, DefaultIgnorePatterns(), NewFileFilter(nil).Patterns())
	assert.Equal(t, DefaultIgnorePatterns(), NewFileFilter([]string{}).Patterns())
}

func TestFileFilter_ShouldIgnore_Defaults(t *testing.T) {
	filter := NewFileFilter(nil)

	tests := []struct {
		path     string
		expected bool
	}{
		{"/srv/in/file.tmp", true},
		{"video.part", true},
		{"image.download", true},
		{"file.crdownload", true},
		{"data.partial", true},
		{".~lock.report.csv#", true},
		{"REPORT.TMP", true},

		{"/srv/in/report.csv", false},
		{"file.template", false},
		{"file.party", false},
		{"file.downloader", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, filter.ShouldIgnore(tt.path))
		})
	}
}

func TestFileFilter_ShouldIgnore_CustomReplacesDefaults(t *testing.T) {
	filter := NewFileFilter([]string{"*.bak", "??.log", ".lck"})

	assert.True(t, filter.ShouldIgnore("file.bak"))
	assert.True(t, filter.ShouldIgnore("ab.log"))
	assert.False(t, filter.ShouldIgnore("abc.log"))
	assert.True(t, filter.ShouldIgnore("inbox.lck"))
	assert.False(t, filter.ShouldIgnore("file.tmp"))
}

func TestFileFilter_Patterns_ReturnsCopy(t *testing.T) {
	filter := NewFileFilter([]string{"*.tmp"})

	patterns := filter.Patterns()
	patterns[0] = "modified"

	assert.Equal(t, []string{"*.tmp"}, filter.Patterns())
}
