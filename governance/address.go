package governance

import (
	"fmt"
	"net"
	"strconv"
)

// LocalIP 第一个非回环 IPv4 地址，找不到时返回 127.0.0.1
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// splitAddr "127.0.0.1:8001" -> ("127.0.0.1", 8001)
func splitAddr(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("address %q: %w", addr, ErrInvalidPort)
	}
	return host, port, nil
}

// instanceID <service>-<host>-<port>
func instanceID(service, host string, port int) string {
	return fmt.Sprintf("%s-%s-%d", service, host, port)
}
