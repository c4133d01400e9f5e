package readings

import (
	"log/slog"
	"time"

	"github.com/home-telemetry/netatmo-collector/internal/netatmo"
)

// MissingFieldPolicy decides what happens when a matched module carries no
// usable dashboard data: omit the Reading entirely, or emit one with numeric
// fields zeroed. Both behaviours exist in the wild; the active policy is a
// configuration choice, not a hidden default.
type MissingFieldPolicy string

const (
	OmitOnMissing MissingFieldPolicy = "omit"
	ZeroOnMissing MissingFieldPolicy = "zero"
)

// ModuleMatcher locates one logical location's module inside a raw snapshot.
// Matchers are independent per-location lookup strategies: a new payload
// shape is absorbed by adding a matcher, not by revising a shared parser.
type ModuleMatcher interface {
	Find(data netatmo.StationsData) (netatmo.Device, bool)
}

// StationMatch matches a main station device by its station_name.
type StationMatch struct {
	StationName string
}

func (m StationMatch) Find(data netatmo.StationsData) (netatmo.Device, bool) {
	for _, d := range data.Devices {
		if d.StationName == m.StationName {
			return d, true
		}
	}
	return netatmo.Device{}, false
}

// ModuleMatch matches a module nested under a named station by its module_name.
type ModuleMatch struct {
	StationName string
	ModuleName  string
}

func (m ModuleMatch) Find(data netatmo.StationsData) (netatmo.Device, bool) {
	for _, d := range data.Devices {
		if d.StationName != m.StationName {
			continue
		}
		for _, mod := range d.Modules {
			if mod.ModuleName == m.ModuleName {
				return mod, true
			}
		}
	}
	return netatmo.Device{}, false
}

// IndexMatch matches a station device by its position in the devices array.
// Some firmware revisions drop station_name, leaving position as the only
// stable handle.
type IndexMatch struct {
	Index int
}

func (m IndexMatch) Find(data netatmo.StationsData) (netatmo.Device, bool) {
	if m.Index < 0 || m.Index >= len(data.Devices) {
		return netatmo.Device{}, false
	}
	return data.Devices[m.Index], true
}

// Rule binds a location to its lookup strategy and field conventions.
type Rule struct {
	Location Location
	Matcher  ModuleMatcher

	// MainsPowered modules report no battery_percent; battery is filled
	// with the 100 sentinel.
	MainsPowered bool

	// Outdoor modules structurally never report pressure or CO2; those
	// fields stay nil rather than zero.
	Outdoor bool
}

// DefaultRules describes the home station layout: two main indoor stations
// plus two battery modules hanging off the "Home" station.
func DefaultRules() []Rule {
	return []Rule{
		{Location: KidsRoom, Matcher: StationMatch{StationName: "Home"}, MainsPowered: true},
		{Location: Kitchen, Matcher: ModuleMatch{StationName: "Home", ModuleName: "Kitchen"}},
		{Location: Garden, Matcher: ModuleMatch{StationName: "Home", ModuleName: "Garden"}, Outdoor: true},
		{Location: LivingRoom, Matcher: StationMatch{StationName: "Living room"}, MainsPowered: true},
	}
}

// Normalizer turns raw snapshots into canonical Readings.
type Normalizer struct {
	rules  []Rule
	policy MissingFieldPolicy
	sender string
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. Sender is the environment tag stamped
// onto every Reading.
func NewNormalizer(rules []Rule, policy MissingFieldPolicy, sender string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		rules:  rules,
		policy: policy,
		sender: sender,
		logger: logger,
	}
}

// Normalize applies every rule to the snapshot and returns the Readings that
// could be extracted. A location whose module is missing or offline yields no
// Reading (under the omit policy) and a warning; it never affects the other
// locations. All returned Readings carry the same normalization-time stamp.
func (n *Normalizer) Normalize(data netatmo.StationsData) []Reading {
	now := time.Now().UTC()

	var out []Reading
	for _, rule := range n.rules {
		r, ok := n.extract(rule, data, now)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (n *Normalizer) extract(rule Rule, data netatmo.StationsData, now time.Time) (Reading, bool) {
	device, found := rule.Matcher.Find(data)
	if !found {
		n.logger.Warn("sensor offline", "location", string(rule.Location))
		return Reading{}, false
	}

	dash := device.DashboardData
	if dash == nil {
		n.logger.Warn("sensor reported no dashboard data", "location", string(rule.Location), "device", device.ID)
		if n.policy == OmitOnMissing {
			return Reading{}, false
		}
	}

	r := Reading{
		Time:     now,
		Sender:   n.sender,
		DeviceID: device.ID,
		Location: rule.Location,
		Battery:  batteryFor(device, rule),
	}

	if dash != nil {
		if dash.Temperature == nil || dash.Humidity == nil {
			n.logger.Warn("sensor dashboard data incomplete", "location", string(rule.Location), "device", device.ID)
			if n.policy == OmitOnMissing {
				return Reading{}, false
			}
		}
		if dash.Temperature != nil {
			r.Temperature = *dash.Temperature
		}
		if dash.Humidity != nil {
			r.Humidity = *dash.Humidity
		}
		if !rule.Outdoor {
			r.Pressure = dash.Pressure
			r.CO2 = dash.CO2
		}
	}

	return r, true
}

// batteryFor resolves the battery percentage, applying the mains-powered
// sentinel when the module reports no battery field.
func batteryFor(device netatmo.Device, rule Rule) int {
	if !rule.MainsPowered && device.BatteryPercent != nil {
		return *device.BatteryPercent
	}
	return 100
}
