package zones

import (
	"testing"

	"github.com/visionops/restaurant-analytics/internal/models"
)

func TestClassifyFirstDeclaredWins(t *testing.T) {
	// Overlapping zones: A is fully inside B, but A is declared first.
	zs := []models.Zone{
		{Name: "A", X: 0, Y: 0, Width: 10, Height: 10},
		{Name: "B", X: 0, Y: 0, Width: 20, Height: 20},
	}

	name, ok := Classify(models.Point{X: 5, Y: 5}, zs)
	if !ok {
		t.Fatal("expected a match")
	}
	if name != "A" {
		t.Errorf("expected zone A, got %s", name)
	}

	// Outside A but inside B.
	name, ok = Classify(models.Point{X: 15, Y: 15}, zs)
	if !ok || name != "B" {
		t.Errorf("expected zone B, got %q (ok=%v)", name, ok)
	}
}

func TestClassifyBordersInclusive(t *testing.T) {
	zs := []models.Zone{{Name: "A", X: 10, Y: 10, Width: 5, Height: 5}}

	for _, p := range []models.Point{
		{X: 10, Y: 10},
		{X: 15, Y: 15},
		{X: 10, Y: 15},
	} {
		if _, ok := Classify(p, zs); !ok {
			t.Errorf("point %+v on border should match", p)
		}
	}

	if _, ok := Classify(models.Point{X: 15.01, Y: 15}, zs); ok {
		t.Error("point just outside should not match")
	}
}

func TestClassifyNoZones(t *testing.T) {
	if _, ok := Classify(models.Point{X: 1, Y: 1}, nil); ok {
		t.Error("empty zone set must never match")
	}
}

func TestCountByZone(t *testing.T) {
	zs := []models.Zone{
		{Name: "work_area", X: 0, Y: 0, Width: 100, Height: 100},
		{Name: "wash_station", X: 200, Y: 0, Width: 50, Height: 50},
	}
	points := []models.Point{
		{X: 10, Y: 10},
		{X: 90, Y: 90},
		{X: 220, Y: 20},
		{X: 500, Y: 500}, // nowhere
	}

	counts := CountByZone(points, zs)
	if counts["work_area"] != 2 {
		t.Errorf("work_area: expected 2, got %d", counts["work_area"])
	}
	if counts["wash_station"] != 1 {
		t.Errorf("wash_station: expected 1, got %d", counts["wash_station"])
	}
}
