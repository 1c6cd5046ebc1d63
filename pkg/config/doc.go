// Package config loads engine configuration from WARDEN_* environment
// variables. The engine is a library; the embedding process decides whether
// to use this loader or to fill the structs directly.
package config
