package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ExitCodeHandledError indicates an error occurred which was already logged, so it should not be printed again.
	ExitCodeHandledError = 2

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 3-5 are often used for common use cases, so we avoid them.

	// ExitCodeFuzzerError indicates that a trial could not be set up or run. This is distinct from a trial failing,
	// which is reported with ExitCodeTestFailed.
	ExitCodeFuzzerError = 6

	// ExitCodeTestFailed indicates at least one trial failed an action or an invariant check.
	ExitCodeTestFailed = 7
)
