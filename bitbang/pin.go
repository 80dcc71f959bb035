package bitbang

// Pin models one open-drain bus line seen from the master side. The
// master never drives the line high; it either pulls it low or releases
// it and lets the pull-up resistor (or another device) set the level.
type Pin interface {
	// PullDown actively drives the line low.
	PullDown() error
	// Release stops driving the line. With nothing else holding it the
	// pull-up takes it high.
	Release() error
	// Read samples the current line level (true = high).
	Read() (bool, error)
}
