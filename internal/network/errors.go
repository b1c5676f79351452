package network

import "errors"

var (
	// ErrBind is returned when the broadcaster cannot bind its listen address.
	ErrBind = errors.New("bind failed")

	// ErrConnect is returned when the receiver cannot reach the broadcaster.
	ErrConnect = errors.New("connect failed")
)
