package registry

import "errors"

var (
	// ErrDuplicate indicates a key or wire name is already registered.
	ErrDuplicate = errors.New("already registered")
	// ErrInvalidName indicates an empty or malformed operation name.
	ErrInvalidName = errors.New("invalid operation name")
	// ErrInvalidSchema indicates an input schema that cannot be used.
	ErrInvalidSchema = errors.New("invalid input schema")
	// ErrInvalidArguments indicates arguments rejected by the input schema.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrMissingArgument indicates a required prompt argument was not supplied.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrUnknownTool indicates a call to a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrUnknownPrompt indicates a request for a prompt that is not registered.
	ErrUnknownPrompt = errors.New("unknown prompt")
	// ErrHandlerPanic indicates a handler panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)
