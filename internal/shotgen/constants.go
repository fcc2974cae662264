package shotgen

// Rink geometry in feet, center ice at the origin.
const (
	rinkHalfLength = 100.0
	rinkHalfWidth  = 42.5
	goalLineX      = 89.0
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
)
