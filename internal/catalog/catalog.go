// Package catalog is the static building table: costs, generation
// coefficients, and placement constraints per building type. Pure data.
package catalog

// BuildingType identifies a placeable structure (or the empty tile).
type BuildingType uint8

const (
	None BuildingType = iota
	Road
	Residential
	Commercial
	Industrial
	Park
	School
	Hospital
	PoliceStation
	PowerPlant

	numBuildingTypes
)

// Config is one immutable catalog entry.
type Config struct {
	Name       string
	Cost       float64
	Population int     // Housing provided per building
	Income     float64 // Base income per tick
	Jobs       int     // Workplaces provided

	// Indicator targets contributed while the building has road access.
	HappinessBonus float64
	EducationBonus float64
	SafetyBonus    float64

	// MaxCount caps instances of this type; 0 means unlimited.
	MaxCount int

	// Demolishable is false for types the player may never remove.
	Demolishable bool
}

// table is the full catalog. Every BuildingType has exactly one row.
var table = map[BuildingType]Config{
	None: {Name: "Empty", Demolishable: false},
	Road: {
		Name:         "Road",
		Cost:         10,
		Demolishable: true,
	},
	Residential: {
		Name:         "Residential",
		Cost:         100,
		Population:   12,
		Income:       2,
		Demolishable: true,
	},
	Commercial: {
		Name:         "Commercial",
		Cost:         150,
		Income:       8,
		Jobs:         8,
		Demolishable: true,
	},
	Industrial: {
		Name:         "Industrial",
		Cost:         200,
		Income:       12,
		Jobs:         14,
		HappinessBonus: -2,
		Demolishable:   true,
	},
	Park: {
		Name:           "Park",
		Cost:           60,
		HappinessBonus: 4,
		Demolishable:   true,
	},
	School: {
		Name:           "School",
		Cost:           250,
		Jobs:           4,
		EducationBonus: 8,
		MaxCount:       6,
		Demolishable:   true,
	},
	Hospital: {
		Name:           "Hospital",
		Cost:           350,
		Jobs:           6,
		HappinessBonus: 3,
		SafetyBonus:    4,
		MaxCount:       4,
		Demolishable:   true,
	},
	PoliceStation: {
		Name:         "Police Station",
		Cost:         300,
		Jobs:         5,
		SafetyBonus:  8,
		MaxCount:     4,
		Demolishable: true,
	},
	PowerPlant: {
		Name:           "Power Plant",
		Cost:           500,
		Income:         20,
		Jobs:           10,
		HappinessBonus: -4,
		MaxCount:       2,
		Demolishable:   true,
	},
}

// Get returns the catalog entry for a building type.
// Unknown types return the None entry.
func Get(t BuildingType) Config {
	if c, ok := table[t]; ok {
		return c
	}
	return table[None]
}

// All returns every placeable building type in declaration order.
func All() []BuildingType {
	out := make([]BuildingType, 0, int(numBuildingTypes)-1)
	for t := Road; t < numBuildingTypes; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is a known building type (including None).
func Valid(t BuildingType) bool {
	return t < numBuildingTypes
}

// Name returns the display name for a building type.
func Name(t BuildingType) string {
	return Get(t).Name
}

// FromString maps a type tag (as used on the wire) to a BuildingType.
func FromString(name string) (BuildingType, bool) {
	m := map[string]BuildingType{
		"road":           Road,
		"residential":    Residential,
		"commercial":     Commercial,
		"industrial":     Industrial,
		"park":           Park,
		"school":         School,
		"hospital":       Hospital,
		"police_station": PoliceStation,
		"power_plant":    PowerPlant,
	}
	t, ok := m[name]
	return t, ok
}

// String returns the wire tag for a building type.
func String(t BuildingType) string {
	switch t {
	case None:
		return "none"
	case Road:
		return "road"
	case Residential:
		return "residential"
	case Commercial:
		return "commercial"
	case Industrial:
		return "industrial"
	case Park:
		return "park"
	case School:
		return "school"
	case Hospital:
		return "hospital"
	case PoliceStation:
		return "police_station"
	case PowerPlant:
		return "power_plant"
	default:
		return "none"
	}
}
