package discovery

import (
	"errors"
	"fmt"
	"net"
	"os"
)

type SelfAddress struct {
	Hostname string
	IP       string
}

// NewSelfAddress finds the hostname and the IPv4 address other hosts on the
// LAN most likely reach us on.
func NewSelfAddress() (*SelfAddress, error) {
	ip, err := outboundIP()
	if err != nil {
		ip, err = firstInterfaceIP()
		if err != nil {
			return nil, err
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.Join(errors.New("error retrieving hostname"), err)
	}

	return &SelfAddress{
		Hostname: hostname,
		IP:       ip,
	}, nil
}

// Addr returns the TCP address as "IP:Port"
func (sa *SelfAddress) Addr(port uint16) string {
	return net.JoinHostPort(sa.IP, fmt.Sprint(port))
}

// outboundIP asks the routing table which source address reaches outside;
// nothing is sent.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

func firstInterfaceIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	return "", errors.New("no IPv4 interface is up")
}
