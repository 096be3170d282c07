package hospitals

import "sort"

// Location is a hospital's check-in point and the radius within which a
// patient counts as on site.
type Location struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// Directory is the immutable hospital table loaded at startup.
type Directory struct {
	byName map[string]Location
}

// NewDirectory builds a Directory. Later entries with a duplicate name win.
func NewDirectory(locations ...Location) *Directory {
	d := &Directory{byName: make(map[string]Location, len(locations))}
	for _, loc := range locations {
		d.byName[loc.Name] = loc
	}
	return d
}

// DefaultLocations are the sites the app is deployed at.
func DefaultLocations() []Location {
	return []Location{
		{Name: "Sengkang Community Hospital", Latitude: 1.3913, Longitude: 103.8861, RadiusMeters: 200},
		{Name: "Singapore General Hospital", Latitude: 1.2789, Longitude: 103.8361, RadiusMeters: 200},
		{Name: "National University Hospital", Latitude: 1.2936, Longitude: 103.7833, RadiusMeters: 200},
		{Name: "Khoo Teck Puat Hospital", Latitude: 1.4236, Longitude: 103.8367, RadiusMeters: 200},
		{Name: "Mount Elizabeth Novena Hospital", Latitude: 1.3205, Longitude: 103.8453, RadiusMeters: 200},
		{Name: "Changi General Hospital", Latitude: 1.3404, Longitude: 103.9492, RadiusMeters: 200},
		{Name: "Dr Beef's Clinic", Latitude: 1.403620, Longitude: 103.893020, RadiusMeters: 500},
	}
}

// Default returns a Directory over DefaultLocations.
func Default() *Directory {
	return NewDirectory(DefaultLocations()...)
}

// Lookup finds a location by exact name.
func (d *Directory) Lookup(name string) (Location, bool) {
	loc, ok := d.byName[name]
	return loc, ok
}

// All lists every location sorted by name.
func (d *Directory) All() []Location {
	out := make([]Location, 0, len(d.byName))
	for _, loc := range d.byName {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists every hospital name sorted.
func (d *Directory) Names() []string {
	all := d.All()
	names := make([]string, len(all))
	for i, loc := range all {
		names[i] = loc.Name
	}
	return names
}
