package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and LoadConfigFile and
// provide specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no root URL is specified.
	ErrNoTarget = errors.New("no target specified: provide an absolute http or https URL")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the configuration file is not
	// valid YAML or contains unknown keys.
	ErrInvalidConfigFile = errors.New("invalid configuration file")

	// ErrNoDatabaseDir is returned when saving run history is requested but
	// no database directory is configured.
	ErrNoDatabaseDir = errors.New("no database directory configured")
)
