package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInsufficientPermission = errors.New("insufficient permission")
)

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InsufficientPermissionError is returned before any request is built when
// the local permission snapshot lacks a required capability.
type InsufficientPermissionError struct {
	GuildID        Snowflake
	Permission     int64
	PermissionName string
}

func (e *InsufficientPermissionError) Error() string {
	return fmt.Sprintf("cannot perform action due to a lack of permission in guild %s: %s",
		e.GuildID, e.PermissionName)
}

func (e *InsufficientPermissionError) Is(target error) bool {
	return target == ErrInsufficientPermission
}
