package main

// Exit codes returned by scry commands.
const (
	ExitSuccess      = 0 // Success
	ExitError        = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError  = 2 // Configuration error (missing credentials, invalid flags)
	ExitLibraryError = 3 // Personal library unreachable or empty
	ExitIndexError   = 4 // Bibliographic index unavailable
	ExitOllamaError  = 5 // Embedding provider not running or model missing
)
