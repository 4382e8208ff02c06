package supervisor

import (
	"net"
	"strconv"
)

// PortInUse reports whether a listener is already bound to the TCP port.
// It binds a throwaway listener on all interfaces: a bind that fails with
// "address in use" means the port is taken; a successful bind is released
// immediately. Any other bind failure reports false so that the caller's
// own connection attempt surfaces the real problem.
func PortInUse(port int) bool {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return isAddrInUse(err)
	}
	_ = ln.Close()
	return false
}
