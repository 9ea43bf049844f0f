package domain

import "errors"

var (
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamProtocol    = errors.New("upstream protocol error")
	ErrPersistence         = errors.New("persistence error")
	ErrModelNotAllowed     = errors.New("model not allowed")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrTurnTimeout         = errors.New("reply generation exceeded maximum duration")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
