package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		level     string
		format    string
		expectErr bool
	}{
		{name: "nop", level: ""},
		{name: "json info", level: "info", format: "json"},
		{name: "console debug", level: "debug", format: "console"},
		{name: "bad level", level: "loud", expectErr: true},
		{name: "bad format", level: "info", format: "xml", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.level, tc.format)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
