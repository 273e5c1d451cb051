package services

import "errors"

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrNoEmployeeAvailable = errors.New("no employee available")
)
