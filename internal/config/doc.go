// Package config loads and validates the mvakit service configuration from
// YAML, applies defaults for absent fields, and watches the file for
// hot-reload. Secrets (API keys, webhook URLs) are resolved from the
// environment, never stored in the file.
package config
