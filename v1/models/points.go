package models

// levelTier describes one contiguous segment of the point axis. Within a
// tier, level = (points - start) / bucket + offset.
type levelTier struct {
	start  int64
	end    int64 // exclusive
	bucket int64
	offset int64
}

// The point axis is partitioned into ten widening tiers; points at or above
// the last tier's end are capped at level 50.
var levelTiers = []levelTier{
	{0, 500, 100, 1},
	{500, 1500, 200, 6},
	{1500, 3000, 300, 11},
	{3000, 5000, 400, 16},
	{5000, 7500, 500, 21},
	{7500, 10500, 600, 26},
	{10500, 14000, 700, 31},
	{14000, 18000, 800, 36},
	{18000, 22500, 900, 41},
	{22500, 27500, 1000, 46},
}

// MaxLevel is the hard level cap
const MaxLevel int64 = 50

// LevelForPoints converts an accumulated point total into the member's
// discrete level in [1, 50]. Integer floor division inside the matching
// tier; 27500 points and beyond are the cap.
func LevelForPoints(points int64) int64 {
	if points < 0 {
		points = 0
	}
	for _, tier := range levelTiers {
		if points < tier.end {
			return (points-tier.start)/tier.bucket + tier.offset
		}
	}
	return MaxLevel
}
