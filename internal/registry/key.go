package registry

import "fmt"

// Origin tells where an operation is implemented.
type Origin int

const (
	// OriginLocal operations run in this process.
	OriginLocal Origin = iota
	// OriginRemote operations are forwarded to a secondary service.
	OriginRemote
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// RemotePrefix is prepended to remote operation names on the wire.
const RemotePrefix = "remote_"

// Key identifies a tool or prompt. A local and a remote operation with the
// same name are distinct keys.
type Key struct {
	Origin Origin
	Name   string
}

// Local returns the key of a local operation.
func Local(name string) Key {
	return Key{Origin: OriginLocal, Name: name}
}

// Remote returns the key of a forwarded operation.
func Remote(name string) Key {
	return Key{Origin: OriginRemote, Name: name}
}

// WireName is the name clients see.
func (k Key) WireName() string {
	if k.Origin == OriginRemote {
		return RemotePrefix + k.Name
	}
	return k.Name
}

func (k Key) String() string {
	return k.Origin.String() + ":" + k.Name
}
