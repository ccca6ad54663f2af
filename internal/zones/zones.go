// Package zones classifies detection points into named camera zones.
package zones

import "github.com/visionops/restaurant-analytics/internal/models"

// Classify returns the name of the first declared zone containing p.
// Zones may overlap; declaration order is the tie-break, not area or
// anything else. The second return is false when no zone matches.
func Classify(p models.Point, zs []models.Zone) (string, bool) {
	for _, z := range zs {
		if z.Contains(p) {
			return z.Name, true
		}
	}
	return "", false
}

// CountByZone returns how many of the given points fall into each zone,
// attributing every point to at most one zone via Classify.
func CountByZone(points []models.Point, zs []models.Zone) map[string]int {
	counts := make(map[string]int, len(zs))
	for _, p := range points {
		if name, ok := Classify(p, zs); ok {
			counts[name]++
		}
	}
	return counts
}
