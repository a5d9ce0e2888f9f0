package link

import "errors"

var (
	ErrLinkNotFound      = errors.New("media link not found")
	ErrInvalidOwner      = errors.New("unknown owner type")
	ErrInvalidRole       = errors.New("role is not valid for this owner type")
	ErrKindNotAllowed    = errors.New("media kind is not allowed for this role")
	ErrAssetNotReady     = errors.New("media asset is not ready")
	ErrPrimaryNotAllowed = errors.New("role does not support a primary member")
	ErrInvalidReorder    = errors.New("reorder payload is not a permutation of the group")
	ErrInvalidVisibility = errors.New("unknown visibility field")
	ErrGroupConflict     = errors.New("concurrent modification of link group")
)
