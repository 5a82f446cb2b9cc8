package core

import "errors"

// Actor runtime errors
var (
	ErrActorStopped    = errors.New("actor is not accepting messages")
	ErrActorFailed     = errors.New("actor failed")
	ErrAlreadyStarted  = errors.New("actor is already started")
	ErrNilMessage      = errors.New("cannot route nil message")
	ErrNoReplyChannel  = errors.New("request has no buffered reply channel")
	ErrSystemShutdown  = errors.New("actor system is shutting down")
	ErrServiceNotFound = errors.New("service not found")
)
