// Package config provides configuration structures and utilities for medusa.
// It defines the command-level options (report format, history database,
// logging) and the YAML configuration file that overlays crawl settings per
// host.
package config
