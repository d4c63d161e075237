package governance

import "errors"

var (
	// ErrEmptyInstanceSet selection over an empty (or all unhealthy) instance set.
	// Surfaced to the caller as-is, there is no instance to fall back to.
	ErrEmptyInstanceSet = errors.New("empty instance set")

	// ErrUnknownBalancer unsupported load balancer name
	ErrUnknownBalancer = errors.New("unknown load balancer")

	// ErrUnknownDiscovery unsupported discovery type
	ErrUnknownDiscovery = errors.New("unknown discovery type")
)

// Service registration related errors
var (
	// ErrInvalidServiceName Invalid service name
	ErrInvalidServiceName = errors.New("invalid service name")

	// ErrInvalidAddress Invalid service address
	ErrInvalidAddress = errors.New("invalid service address")

	// ErrInvalidPort Invalid service port
	ErrInvalidPort = errors.New("invalid service port")

	// ErrNotRegistered service not registered
	ErrNotRegistered = errors.New("service not registered")

	// ErrKeepAliveFailed lease keep-alive channel closed
	ErrKeepAliveFailed = errors.New("keep alive failed")
)
