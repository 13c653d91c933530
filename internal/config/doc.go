// Package config loads the queue service configuration from an optional
// config file and MJQ_-prefixed environment variables, applies defaults and
// validates the result before any component is constructed.
package config
