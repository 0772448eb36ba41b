package netscan

import (
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// arp -a line:
//
//	hostname (192.168.1.1) at a4:2b:b0:d1:ae:60 on en0 ifscope [ethernet]
//	? (192.168.1.7) at (incomplete) on en0 ifscope [ethernet]
var arpLineRegex = regexp.MustCompile(`^(\S+) \(([\d.]+)\) at (\S+) on (\S+)`)

// ParseARPOutput parses `arp -a` output into devices. Unparseable lines
// are skipped.
func ParseARPOutput(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		m := arpLineRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		d := Device{
			Hostname:  m[1],
			IP:        m[2],
			MAC:       m[3],
			Interface: m[4],
		}
		if d.Hostname == "?" {
			d.Hostname = ""
		}
		if strings.Contains(d.MAC, "incomplete") {
			d.MAC = ""
			d.Incomplete = true
		}
		devices = append(devices, d)
	}
	return devices
}

// ifconfig inet line: "inet 192.168.1.20 netmask 0xffffff00 broadcast ..."
var inetLineRegex = regexp.MustCompile(`inet ([\d.]+) netmask (0x[0-9a-fA-F]{8})`)

// ParseInterfaceNetwork extracts the IPv4 network from ifconfig output.
func ParseInterfaceNetwork(ifconfigOut string) (*net.IPNet, error) {
	m := inetLineRegex.FindStringSubmatch(ifconfigOut)
	if m == nil {
		return nil, fmt.Errorf("no IPv4 address found in ifconfig output")
	}

	ip := net.ParseIP(m[1])
	if ip == nil {
		return nil, fmt.Errorf("invalid address %q in ifconfig output", m[1])
	}

	maskVal, err := strconv.ParseUint(strings.TrimPrefix(m[2], "0x"), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid netmask %q: %w", m[2], err)
	}
	maskBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(maskBytes, uint32(maskVal))
	mask := net.IPMask(maskBytes)

	return &net.IPNet{IP: ip.Mask(mask), Mask: mask}, nil
}

// HostAddresses enumerates usable host addresses in the network, skipping
// the network and broadcast addresses. Enumeration is capped so a
// misconfigured mask cannot produce millions of probe targets.
func HostAddresses(ipnet *net.IPNet, max int) []string {
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return nil
	}

	base := binary.BigEndian.Uint32(ip4)
	ones, bits := ipnet.Mask.Size()
	if bits != 32 {
		return nil
	}
	size := uint32(1) << uint(bits-ones)
	if size <= 2 {
		return []string{ipnet.IP.String()}
	}

	var hosts []string
	for i := uint32(1); i < size-1; i++ {
		if max > 0 && len(hosts) >= max {
			break
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, base+i)
		hosts = append(hosts, net.IP(buf).String())
	}
	return hosts
}
