package logging

// These constants are used to identify the various services that may do some logging
const (
	// FUZZING_SERVICE is the constant used to identify the fuzzing package
	FUZZING_SERVICE = "fuzzing"
	// RELAY_SERVICE is the constant used to identify the relay package
	RELAY_SERVICE = "relay"
	// CHAIN_SERVICE is the constant used to identify the chain package
	CHAIN_SERVICE = "chain"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
