package core

import "errors"

var (
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidScope      = errors.New("invalid scope")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRecordNotFound    = errors.New("record not found")
	ErrUnknownDomain     = errors.New("unknown staging domain")
)
