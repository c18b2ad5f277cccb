package types

import "strings"

// BackendType represents supported store backends
type BackendType string

const (
	// MEMORY keeps state in process memory; everything is lost on exit.
	MEMORY BackendType = "MEMORY"
	// POSTGRES stores state in PostgreSQL tables.
	POSTGRES BackendType = "POSTGRES"
	// REDIS stores state in Redis keys.
	REDIS BackendType = "REDIS"
	// BADGER stores state in an embedded BadgerDB directory.
	BADGER BackendType = "BADGER"
	// UNKNOWN represents unknown or unsupported backend type in the system.
	UNKNOWN BackendType = "UNKNOWN"
)

// String converts BackendType to string representation
func (t BackendType) String() string {
	return string(t)
}

// ParseBackendType converts a case-insensitive string to BackendType representation.
func ParseBackendType(s string) BackendType {
	switch BackendType(strings.ToUpper(strings.TrimSpace(s))) {
	case MEMORY:
		return MEMORY
	case POSTGRES:
		return POSTGRES
	case REDIS:
		return REDIS
	case BADGER:
		return BADGER
	default:
		return UNKNOWN
	}
}
