package exitcodes

// Exit codes for icloud-evict
// These codes form the operational contract with scripts and automation
const (
	Success        = 0 // Every attempted eviction succeeded (or dry run)
	EvictionFailed = 1 // At least one eviction attempt failed
	InvalidConfig  = 2 // Configuration file or flags invalid
	InvalidRoot    = 3 // Root path missing or not a directory
	RuntimeError   = 4 // Runtime error during execution
)
