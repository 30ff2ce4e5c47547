// Package viz draws a running magnet world in the terminal.
//
// [Model] is a Bubble Tea program showing a top-down (x/z) view on a braille
// [Canvas], with a kinetic energy plot and live solver tuning. [RunInteractive]
// adds a preset picker in front of it.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	R       - Rebuild the scene
//	Tab     - Cycle solver parameters, Up/Down to tune
//	N       - Select next body, WASD to push it
//	F/G/U   - Gun trigger, mode, unlock
//	?       - Show help overlay
package viz
