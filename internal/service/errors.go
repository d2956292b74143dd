package service

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrClaimConflict       = errors.New("post is already being published")
	ErrAccountNotConnected = errors.New("account not connected")
)
