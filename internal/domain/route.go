package domain

// Route is a named bus line with its own per-second rate.
type Route struct {
	ID            string
	Name          string
	RatePerSecond float64
}

// ManualRouteName is used when no route is selected.
const ManualRouteName = "Manual Rate"

// FareSettings is the currently active fare configuration.
type FareSettings struct {
	RatePerSecond  float64
	CurrentRouteID string
}
