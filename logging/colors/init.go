package colors

// init enables ANSI coloring where the attached console supports it.
func init() {
	EnableColor()
}
