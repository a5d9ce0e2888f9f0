package media

import "errors"

var (
	ErrAssetNotFound      = errors.New("media asset not found")
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType    = errors.New("file type is not allowed")
	ErrKindMismatch       = errors.New("mime type does not match declared kind")
	ErrInvalidKind        = errors.New("unknown media kind")
	ErrStorage            = errors.New("storage backend failure")
	ErrInvalidOutcome     = errors.New("invalid processing outcome payload")
	ErrConflictingOutcome = errors.New("conflicting terminal outcome for asset")
	ErrAssetLinked        = errors.New("asset is still referenced by links")
)
