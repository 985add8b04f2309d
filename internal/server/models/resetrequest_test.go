package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPasswordResetRequest_Usable(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lifespan := 6 * time.Hour

	tests := []struct {
		name   string
		active bool
		now    time.Time
		want   bool
	}{
		{name: "active and fresh", active: true, now: at.Add(time.Hour), want: true},
		{name: "one nanosecond before end", active: true, now: at.Add(lifespan - 1), want: true},
		{name: "exactly at end", active: true, now: at.Add(lifespan), want: false},
		{name: "inactive", active: false, now: at.Add(time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &PasswordResetRequest{RequestTime: at, Active: tt.active}
			assert.Equal(t, tt.want, r.Usable(tt.now, lifespan))
		})
	}
}
