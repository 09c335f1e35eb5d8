package domain

import "path/filepath"

const (
	// StateDirName is the name of the local working directory.
	StateDirName = ".fieldsync"

	// CacheDirName is the name of the response cache directory.
	CacheDirName = "cache"

	// QueueFileName is the name of the SQLite offline queue database.
	QueueFileName = "queue.db"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "fieldsync.yaml"

	// ConfigEnvVar overrides the configuration file path.
	ConfigEnvVar = "FIELDSYNC_CONFIG"

	// ControlPrefix is the path prefix reserved for the local control API.
	ControlPrefix = "/_fieldsync"

	// CacheHeader reports how the router satisfied a request.
	CacheHeader = "X-Fieldsync-Cache"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultCachePath returns the default directory for the file cache store.
// It joins .fieldsync and cache.
func DefaultCachePath() string {
	return filepath.Join(StateDirName, CacheDirName)
}

// DefaultQueuePath returns the default SQLite queue path.
// It joins .fieldsync and queue.db.
func DefaultQueuePath() string {
	return filepath.Join(StateDirName, QueueFileName)
}
