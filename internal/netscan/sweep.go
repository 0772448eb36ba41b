package netscan

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	probing "github.com/prometheus-community/pro-bing"
)

// maxSweepHosts caps how many addresses a sweep will probe, so a wide
// netmask cannot turn a scan into a flood.
const maxSweepHosts = 1024

// PingSweep probes every host address in the network once to populate the
// kernel ARP table before it is read. Probe failures are expected (most
// addresses are unused) and ignored; the return value is the number of
// hosts that answered.
func (s *Scanner) PingSweep(ipnet *net.IPNet) int {
	hosts := HostAddresses(ipnet, maxSweepHosts)
	if len(hosts) == 0 {
		return 0
	}

	workers := s.cfg.PingWorkers
	if workers <= 0 {
		workers = 64
	}
	timeout := s.cfg.PingTimeoutDuration()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		responded int
	)
	sem := make(chan struct{}, workers)

	for _, host := range hosts {
		wg.Add(1)
		sem <- struct{}{}
		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			if pingOnce(addr, timeout) {
				mu.Lock()
				responded++
				mu.Unlock()
			}
		}(host)
	}
	wg.Wait()

	s.logger.Debug("ping sweep finished", "hosts", len(hosts), "responded", responded)
	return responded
}

func pingOnce(addr string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// Resolve fills in PTR hostnames for devices that have none. The lookup
// goes to the configured DNS server, or the system resolver's first
// nameserver when none is configured.
func (s *Scanner) Resolve(devices []Device) {
	server := s.cfg.DNSServer
	if server == "" {
		cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || len(cc.Servers) == 0 {
			s.logger.Debug("no resolver available for PTR lookups", "error", err)
			return
		}
		server = cc.Servers[0]
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	client := &dns.Client{Timeout: s.cfg.PingTimeoutDuration()}
	for i := range devices {
		if devices[i].Hostname != "" || devices[i].Incomplete {
			continue
		}
		if name := lookupPTR(client, server, devices[i].IP); name != "" {
			devices[i].Hostname = name
		}
	}
}

func lookupPTR(client *dns.Client, server, ip string) string {
	rev, err := dns.ReverseAddr(ip)
	if err != nil {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(rev, dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := client.Exchange(msg, server)
	if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
		return ""
	}
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}
