package filesystem

import "errors"

var (
	ErrNotFound             = errors.New("no such file or directory")
	ErrNameConflict         = errors.New("name already exists")
	ErrNotADirectory        = errors.New("not a directory")
	ErrInvalidLeaseDepth    = errors.New("lease must name exactly one directory below the root")
	ErrLeaseAlreadyHeld     = errors.New("subtree is already leased")
	ErrRootRemovalForbidden = errors.New("cannot remove the root of a leased subtree")
	ErrAccessDenied         = errors.New("read-only filesystem")
	ErrIsDir                = errors.New("is a directory")
)
