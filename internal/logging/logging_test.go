package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreams(t *testing.T) {
	var ops, diag bytes.Buffer
	SetWriters(Writers{Ops: &ops, Diag: &diag})
	defer SetWriters(Writers{})

	Opsf("batch %s started", "r1")
	Diagf("link %d code %d", 7, 3)
	Tracef("dropped %d", 2)

	assert.Contains(t, ops.String(), "[ops] ")
	assert.Contains(t, ops.String(), "batch r1 started")
	assert.Contains(t, diag.String(), "link 7 code 3")
	assert.NotContains(t, ops.String(), "dropped")
}

func TestForLevel(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		level            string
		ops, diag, trace bool
	}{
		{"", true, false, false},
		{"ops", true, false, false},
		{"diag", true, true, false},
		{"DEBUG", true, true, true},
		{"trace", true, true, true},
		{"off", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			w := ForLevel(tt.level, &buf)
			assert.Equal(t, tt.ops, w.Ops != nil)
			assert.Equal(t, tt.diag, w.Diag != nil)
			assert.Equal(t, tt.trace, w.Trace != nil)
		})
	}
}
