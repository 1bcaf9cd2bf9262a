package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForPoints_Anchors(t *testing.T) {
	cases := []struct {
		name   string
		points int64
		level  int64
	}{
		{"zero points is level one", 0, 1},
		{"just below first bucket boundary", 99, 1},
		{"first bucket boundary", 100, 2},
		{"top of first tier", 499, 5},
		{"second tier start", 500, 6},
		{"mid second tier", 699, 6},
		{"second tier step", 700, 7},
		{"third tier start", 1500, 11},
		{"fourth tier start", 3000, 16},
		{"fifth tier start", 5000, 21},
		{"sixth tier start", 7500, 26},
		{"seventh tier start", 10500, 31},
		{"eighth tier start", 14000, 36},
		{"ninth tier start", 18000, 41},
		{"tenth tier start", 22500, 46},
		{"cap boundary", 27500, 50},
		{"far past cap", 100000, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.level, LevelForPoints(tc.points))
		})
	}
}

func TestLevelForPoints_NonDecreasing(t *testing.T) {
	prev := LevelForPoints(0)
	for p := int64(1); p <= 30000; p++ {
		level := LevelForPoints(p)
		if level < prev {
			t.Fatalf("level decreased at %d points: %d -> %d", p, prev, level)
		}
		if level < 1 || level > MaxLevel {
			t.Fatalf("level out of range at %d points: %d", p, level)
		}
		prev = level
	}
}

func TestLevelForPoints_NegativeClamped(t *testing.T) {
	assert.Equal(t, int64(1), LevelForPoints(-1))
	assert.Equal(t, int64(1), LevelForPoints(-10000))
}
