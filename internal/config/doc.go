// Package config holds the YAML settings shared by the fridge-monitor
// subcommands. Intervals are written as ISO-8601 durations (PT10S, PT15M),
// matching the duration strings the device reports in its records.
package config
