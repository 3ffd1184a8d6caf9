// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// which is how source credentials and database passwords are normally supplied.
// Sources left out of the file are filled in from per-organization defaults.
package config
