package service

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPersistence        = errors.New("persistence failure")
)
