package noderpc

import "net/rpc"

// errorString builds the error type net/rpc clients receive for server-side
// failures.
func errorString(s string) error {
	return rpc.ServerError(s)
}
