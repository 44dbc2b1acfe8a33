package fs

import "errors"

// Sentinel errors returned by capability implementations and the engine
// itself, mirrored on rclone's fs.ErrorDirNotFound / fs.ErrorIsFile family.
var (
	ErrDirNotFound      = errors.New("directory not found")
	ErrObjectNotFound   = errors.New("object not found")
	ErrNotAFile         = errors.New("is a directory, not a file")
	ErrIsFile           = errors.New("is a file, not a directory")
	ErrReadOnly         = errors.New("filesystem or archive is read-only")
	ErrNotImplemented   = errors.New("not implemented by this capability")
	ErrNoTransaction    = errors.New("no transaction in progress")
	ErrTransactionOpen  = errors.New("a transaction is already open")
	ErrNameTooLong      = errors.New("adjusted name exceeds maximum length")
	ErrDuplicateName    = errors.New("duplicate name (case-insensitive)")
	ErrCancelled        = errors.New("operation cancelled by caller")
	ErrStreamLeak       = errors.New("stream was not closed before being dropped")
	ErrNoResourceForks  = errors.New("target cannot hold resource forks")
	ErrEmptyEntry       = errors.New("entry has neither data nor resource fork")
	ErrSidecarNoPrimary = errors.New("maczip sidecar has no matching primary entry")
)
