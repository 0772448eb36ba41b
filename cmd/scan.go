package cmd

import (
	"os"
	"text/tabwriter"

	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/netscan"
	"grimm.is/netleash/internal/system"
)

// ScanOptions carries scan flags. Nil pointer fields mean "not given on
// the command line", so the config file's scan block applies.
type ScanOptions struct {
	Interface string
	Ping      *bool
	Nmap      *bool
	Resolve   *bool
}

// RunScan discovers devices on the local network and prints them.
func RunScan(configFile string, opts ScanOptions) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	iface := cfg.Interface
	if opts.Interface != "" {
		iface = opts.Interface
	}
	scanCfg := *cfg.Scan
	if opts.Ping != nil {
		scanCfg.Ping = opts.Ping
	}
	if opts.Nmap != nil {
		scanCfg.Nmap = opts.Nmap
	}
	if opts.Resolve != nil {
		scanCfg.Resolve = opts.Resolve
	}

	scanner := netscan.NewScanner(system.DefaultCommandExecutor, iface, &scanCfg, nil)

	ifconfigOut, err := scanner.CheckInterface()
	if err != nil {
		return err
	}

	if network := scanner.CurrentNetwork(); network != "" {
		Printer.Printf("Current network: %s\n", network)
	}

	ipnet, err := netscan.ParseInterfaceNetwork(ifconfigOut)
	if err != nil {
		logging.Warn("could not determine interface subnet, skipping sweeps", "interface", iface, "error", err)
	} else {
		Printer.Printf("Interface:       %s (%s)\n", iface, ipnet)

		if scanCfg.PingEnabled() {
			Printer.Println("Sweeping subnet to populate the ARP table...")
			scanner.PingSweep(ipnet)
		}
		if scanCfg.NmapEnabled() {
			out, err := scanner.NmapSweep(ipnet.String())
			if err != nil {
				logging.Warn("nmap sweep failed", "error", err)
			} else {
				Printer.Println("\nnmap results:")
				Printer.Println(out)
			}
		}
	}

	devices, err := scanner.ARPTable()
	if err != nil {
		return err
	}
	if scanCfg.ResolveEnabled() {
		scanner.Resolve(devices)
	}

	Printer.Printf("\nDiscovered devices (%d):\n", len(devices))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	Printer.Fprintf(w, "IP\tMAC\tHOSTNAME\n")
	for _, d := range devices {
		mac := d.MAC
		if d.Incomplete {
			mac = "(incomplete)"
		}
		name := d.Hostname
		if name == "" {
			name = "-"
		}
		Printer.Fprintf(w, "%s\t%s\t%s\n", d.IP, mac, name)
	}
	return w.Flush()
}
