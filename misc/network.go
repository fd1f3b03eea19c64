package misc

import (
	"net"

	"github.com/BrugadaSyndrome/bslogger"
)

// GetLocalAddress returns the first IPv4 address of an up, non-loopback interface.
// Loopback is returned when the device has no such interface.
func GetLocalAddress() string {
	logger := bslogger.NewLogger("Network", bslogger.Normal, nil)

	networkInterfaces, err := net.Interfaces()
	if err != nil {
		logger.Warning("Failed to find network interface on this device")
		return "127.0.0.1"
	}

	// Attempt to find the first non-loop back network interface with an IP address
	for _, elt := range networkInterfaces {
		if elt.Flags&net.FlagLoopback != 0 || elt.Flags&net.FlagUp == 0 {
			continue
		}
		address, err := elt.Addrs()
		if err != nil {
			logger.Warning("Failed to get an address form the network interface")
			continue
		}
		for _, addr := range address {
			if ip, ok := addr.(*net.IPNet); ok {
				if ip4 := ip.IP.To4(); len(ip4) == net.IPv4len {
					return ip4.String()
				}
			}
		}
	}

	logger.Warning("Failed to find a non-loopback interface with valid address on this device")
	return "127.0.0.1"
}
