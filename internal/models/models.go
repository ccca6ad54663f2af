package models

import "time"

// Role identifies the purpose of a camera stream. The set is closed:
// adding a role means adding code that knows how to aggregate it.
type Role string

const (
	RoleVehicle Role = "vehicle"
	RolePerson  Role = "person"
	RoleQueue   Role = "queue"
	RoleStaff   Role = "staff"
)

// AllRoles lists every known stream role in a stable order.
var AllRoles = []Role{RoleVehicle, RolePerson, RoleQueue, RoleStaff}

// Valid reports whether r is one of the known stream roles.
func (r Role) Valid() bool {
	switch r {
	case RoleVehicle, RolePerson, RoleQueue, RoleStaff:
		return true
	}
	return false
}

// Point is a position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is an axis-aligned box in frame pixel coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Detection is one classified object found in a frame. Immutable once built.
type Detection struct {
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
	Center     Point       `json:"center"`
	Zone       string      `json:"zone,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Zone is a named rectangular region of interest within a camera frame.
// Zones are declared in config and never mutated at runtime.
type Zone struct {
	Name   string  `yaml:"name" json:"name"`
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Contains reports whether p lies within the zone rectangle, borders included.
func (z Zone) Contains(p Point) bool {
	return p.X >= z.X && p.X <= z.X+z.Width &&
		p.Y >= z.Y && p.Y <= z.Y+z.Height
}

// Snapshot is the result of one inference cycle for one stream role.
// It is published wholesale and must never be mutated after publish.
//
// Count carries the role-specific aggregate: vehicles in view, persons at
// the gate, persons inside queue zones, or staff inside the work area.
// HandWash is only meaningful for RoleStaff.
type Snapshot struct {
	Role       Role        `json:"role"`
	Count      int         `json:"count"`
	HandWash   bool        `json:"hand_wash,omitempty"`
	Detections []Detection `json:"detections"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Severity grades an alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is a threshold violation noticed during one aggregation cycle.
// The same condition fires a fresh alert every cycle while it holds;
// downstream consumers rely on the repetition as a liveness signal.
type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// KPIRecord is the summarized row flushed to the persistence store on the
// slow timer. One row per flush, regardless of how many ticks ran between.
type KPIRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	CustomerEntries   int       `json:"customer_entries"`
	CustomerExits     int       `json:"customer_exits"`
	CurrentOccupancy  int       `json:"current_occupancy"`
	VehicleCount      int       `json:"vehicle_count"`
	QueueLength       int       `json:"queue_length"`
	StaffCount        int       `json:"staff_count"`
	ServiceEfficiency float64   `json:"service_efficiency"`
}

// EventKind selects the event table a row is appended to.
type EventKind string

const (
	EventCustomer EventKind = "customer"
	EventVehicle  EventKind = "vehicle"
	EventQueue    EventKind = "queue"
	EventStaff    EventKind = "staff"
)

// Event is one appended row in an event table.
type Event struct {
	ID         string         `json:"id"`
	Kind       EventKind      `json:"kind"`
	Type       string         `json:"type"`
	Count      int            `json:"count"`
	CameraID   string         `json:"camera_id,omitempty"`
	ZoneName   string         `json:"zone_name,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Heartbeat is the liveness message a stream worker publishes to Kafka.
type Heartbeat struct {
	Role      Role      `json:"role"`
	Frames    int64     `json:"frames"`
	TimeStamp time.Time `json:"timestamp"`
}

// HourlyStat is one bucket of an hourly aggregate query.
type HourlyStat struct {
	Hour    int `json:"hour"`
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
}
