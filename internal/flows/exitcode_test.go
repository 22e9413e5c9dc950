package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalExitCode(t *testing.T) {
	tests := []struct {
		name              string
		preScanDisallowed bool
		proxyBlocked      bool
		childExit         int
		want              int
	}{
		{"clean run, child succeeded", false, false, 0, 0},
		{"clean run, child failed", false, false, 2, 2},
		{"proxy blocked, child succeeded", false, true, 0, 1},
		{"proxy blocked, child failed with other status", false, true, 17, 1},
		{"pre-scan disallowed, child never ran", true, false, 0, 1},
		{"pre-scan disallowed and proxy blocked", true, true, 0, 1},
		{"clean run, child exit preserved verbatim", false, false, 127, 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finalExitCode(tt.preScanDisallowed, tt.proxyBlocked, tt.childExit))
		})
	}
}
