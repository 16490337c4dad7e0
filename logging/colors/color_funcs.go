package colors

import "fmt"

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// Reset is a no-op ColorFunc used to end the color context opened by a previous argument of a log call.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// Bold is a ColorFunc that returns a bolded string of the provided input
func Bold(s any) string {
	return Colorize(s, BOLD)
}

// boldColor returns a ColorFunc rendering its input bold in the provided color.
func boldColor(c Color) ColorFunc {
	return func(s any) string {
		return Colorize(Colorize(s, c), BOLD)
	}
}

// The bold palette used for log levels and campaign summaries.
var (
	RedBold    = boldColor(RED)
	GreenBold  = boldColor(GREEN)
	YellowBold = boldColor(YELLOW)
	BlueBold   = boldColor(BLUE)
	CyanBold   = boldColor(CYAN)
)
