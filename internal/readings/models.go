package readings

import "time"

// Location is the canonical logical name a module is mapped to.
type Location string

const (
	KidsRoom   Location = "Kids room"
	Kitchen    Location = "Kitchen"
	Garden     Location = "Garden"
	LivingRoom Location = "Living room"
)

// DefaultLocation is returned when a room code cannot be resolved.
var DefaultLocation = KidsRoom

// locationCodes maps the short room identifiers used by display callers
// to canonical locations.
var locationCodes = map[string]Location{
	"4": KidsRoom,
	"9": Kitchen,
	"7": Garden,
	"2": LivingRoom,
}

// ResolveLocationCode maps a room code to its canonical location.
// Unrecognized codes fall back to DefaultLocation; ok reports whether the
// code was actually known so callers can log the fallback.
func ResolveLocationCode(code string) (loc Location, ok bool) {
	if loc, ok := locationCodes[code]; ok {
		return loc, true
	}
	return DefaultLocation, false
}

// Reading is the canonical record produced by one normalization pass for one
// location. Pressure and CO2 are pointers because some module classes
// (outdoor) structurally never report them.
type Reading struct {
	Time        time.Time `json:"time"`
	Sender      string    `json:"sender"`
	DeviceID    string    `json:"deviceId"`
	Location    Location  `json:"location"`
	Battery     int       `json:"battery"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    *float64  `json:"pressure"`
	CO2         *float64  `json:"co2"`
}
