package netatmo

// StationsData is the raw getstationsdata payload: every station device the
// account can see, with additional modules nested under their parent station.
// Field availability varies by module type and firmware, so anything that can
// be absent is a pointer.
type StationsData struct {
	Devices []Device `json:"devices"`
}

// Device is one physical unit: either a main station or a nested module.
// Main stations carry their modules in Modules; modules have it empty.
type Device struct {
	ID             string         `json:"_id"`
	Type           string         `json:"type"`
	StationName    string         `json:"station_name"`
	ModuleName     string         `json:"module_name"`
	BatteryPercent *int           `json:"battery_percent"`
	DashboardData  *DashboardData `json:"dashboard_data"`
	Modules        []Device       `json:"modules"`
}

// DashboardData holds the current measurements of a device. Outdoor modules
// never report Pressure or CO2; offline devices omit the whole struct.
type DashboardData struct {
	Temperature *float64 `json:"Temperature"`
	Humidity    *float64 `json:"Humidity"`
	Pressure    *float64 `json:"Pressure"`
	CO2         *float64 `json:"CO2"`
}
