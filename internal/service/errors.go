package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrForbidden            = errors.New("not allowed to modify this document")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
	ErrInternalServer       = errors.New("internal server error")
)
