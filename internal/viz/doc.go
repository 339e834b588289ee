// Package viz replays a finished crystallizer run in the terminal.
//
// The [Viewer] is a Bubble Tea model that draws the particle-size
// distribution of the selected snapshot on a braille [Canvas], with the seed
// distribution behind it, next to the solution state at that time.
//
// # Key Bindings
//
//	Space   - play or pause the replay
//	→ / ←   - step one snapshot
//	g / G   - jump to the first or last snapshot
//	t       - cycle color themes
//	q       - quit
//	?       - show help
package viz
