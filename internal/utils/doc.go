// Package utils exposes reusable helpers consumed by the command layer.
//
// ConfigurationLoader layers tool settings from defaults, files, environment
// variables, and flags through Viper. LoggerFactory builds the zap logger that
// writes to both the run log file and the console.
package utils
