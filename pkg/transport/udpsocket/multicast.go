package udpsocket

import (
	"net"

	"golang.org/x/net/ipv4"
)

// groupJoiner wraps golang.org/x/net/ipv4.PacketConn's multicast group join
// for JoinMulticast.
type groupJoiner struct {
	pc *ipv4.PacketConn
}

func (g groupJoiner) joinGroup(iface *net.Interface, group *net.UDPAddr) error {
	return g.pc.JoinGroup(iface, group)
}

func ipv4PacketConn(conn *net.UDPConn) groupJoiner {
	return groupJoiner{pc: ipv4.NewPacketConn(conn)}
}
