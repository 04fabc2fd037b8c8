package store

import "errors"

var (
	ErrVisitNotFound  = errors.New("visit not found")
	ErrChargeNotFound = errors.New("charge not found")
	ErrTokenConflict  = errors.New("token conflict")
)
