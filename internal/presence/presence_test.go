// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FaelSemW/LovePingServer/internal/presence"
)

/*
TestStatus_Valid verifies the known status values.
*/
func TestStatus_Valid(t *testing.T) {
	assert.True(t, presence.StatusOnline.Valid())
	assert.True(t, presence.StatusAway.Valid())
	assert.True(t, presence.StatusOffline.Valid())
	assert.False(t, presence.Status("banana").Valid())
	assert.False(t, presence.Status("").Valid())
}

/*
TestNowPlaying_Equivalent verifies the material-change comparison used
for diff-based emission.
*/
func TestNowPlaying_Equivalent(t *testing.T) {
	base := &presence.NowPlaying{Track: "Song A", Artist: "Artist", Playing: true, Progress: 1000}

	tests := []struct {
		name       string
		other      *presence.NowPlaying
		equivalent bool
	}{
		{"identical", &presence.NowPlaying{Track: "Song A", Artist: "Artist", Playing: true, Progress: 1000}, true},
		{"progress_only", &presence.NowPlaying{Track: "Song A", Artist: "Artist", Playing: true, Progress: 9000}, true},
		{"paused", &presence.NowPlaying{Track: "Song A", Artist: "Artist", Playing: false, Progress: 1000}, false},
		{"different_track", &presence.NowPlaying{Track: "Song B", Artist: "Artist", Playing: true}, false},
		{"different_artist", &presence.NowPlaying{Track: "Song A", Artist: "Other", Playing: true}, false},
		{"nil_other", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equivalent, base.Equivalent(tt.other))
		})
	}

	// Nothing-playing on both sides is equivalent.
	var nothing *presence.NowPlaying
	assert.True(t, nothing.Equivalent(nil))
}
