// Package config loads the render cache server's configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and a fixed set of environment variables. The file is
// expanded with strict ${VAR} substitution before parsing. Secret fields may
// hold secretref: values, resolved by ResolveSecrets once at startup.
//
// Watcher reloads the file on change and hands the new Config to
// callbacks. Only settings that can change safely at runtime (cache limits,
// log level) are meant to be applied from a reload.
package config
