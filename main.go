package main

import (
	"flag"
	"os"

	"grimm.is/netleash/cmd"
	"grimm.is/netleash/internal/brand"
	"grimm.is/netleash/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		scanFlags := flag.NewFlagSet("scan", flag.ExitOnError)
		configFile := scanFlags.String("config", brand.DefaultConfigFile(), "Configuration file")
		scanFlags.StringVar(configFile, "c", brand.DefaultConfigFile(), "Configuration file (short)")

		iface := scanFlags.String("interface", "", "Network interface (e.g., en0)")
		scanFlags.StringVar(iface, "i", "", "Network interface (short)")

		ping := scanFlags.Bool("ping", true, "Ping-sweep the subnet before reading the ARP table")
		nmap := scanFlags.Bool("nmap", false, "Also run an nmap ping scan of the subnet")
		resolve := scanFlags.Bool("resolve", false, "Reverse-resolve device hostnames")

		scanFlags.Parse(os.Args[2:])

		// Only flags the user actually passed override the config file
		opts := cmd.ScanOptions{Interface: *iface}
		scanFlags.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "ping":
				opts.Ping = ping
			case "nmap":
				opts.Nmap = nmap
			case "resolve":
				opts.Resolve = resolve
			}
		})

		if err := cmd.RunScan(*configFile, opts); err != nil {
			printer.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			os.Exit(1)
		}

	case "monitor":
		monitorFlags := flag.NewFlagSet("monitor", flag.ExitOnError)
		configFile := monitorFlags.String("config", brand.DefaultConfigFile(), "Configuration file")
		monitorFlags.StringVar(configFile, "c", brand.DefaultConfigFile(), "Configuration file (short)")

		ip := monitorFlags.String("ip", "", "Target IP address")

		persistent := monitorFlags.Bool("persistent", false, "Keep rules across reboots")
		monitorFlags.BoolVar(persistent, "p", false, "Keep rules across reboots (short)")

		dryRun := monitorFlags.Bool("dry-run", false, "Show what would change without applying")
		monitorFlags.BoolVar(dryRun, "n", false, "Dry run (short)")

		monitorFlags.Parse(os.Args[2:])

		if *ip == "" {
			printer.Fprintf(os.Stderr, "Usage: %s monitor --ip <ip> [--persistent] [--dry-run]\n", brand.BinaryName)
			os.Exit(1)
		}

		if err := cmd.RunMonitor(*configFile, *ip, *persistent, *dryRun); err != nil {
			printer.Fprintf(os.Stderr, "Monitor failed: %v\n", err)
			os.Exit(1)
		}

	case "limit":
		limitFlags := flag.NewFlagSet("limit", flag.ExitOnError)
		configFile := limitFlags.String("config", brand.DefaultConfigFile(), "Configuration file")
		limitFlags.StringVar(configFile, "c", brand.DefaultConfigFile(), "Configuration file (short)")

		ip := limitFlags.String("ip", "", "Target IP address")

		upload := limitFlags.Uint("upload", 0, "Upload limit in KB/s")
		limitFlags.UintVar(upload, "u", 0, "Upload limit (short)")

		download := limitFlags.Uint("download", 0, "Download limit in KB/s")
		limitFlags.UintVar(download, "d", 0, "Download limit (short)")

		persistent := limitFlags.Bool("persistent", false, "Keep rules across reboots")
		limitFlags.BoolVar(persistent, "p", false, "Keep rules across reboots (short)")

		dryRun := limitFlags.Bool("dry-run", false, "Show what would change without applying")
		limitFlags.BoolVar(dryRun, "n", false, "Dry run (short)")

		limitFlags.Parse(os.Args[2:])

		if *ip == "" {
			printer.Fprintf(os.Stderr, "Usage: %s limit --ip <ip> [--upload KB/s] [--download KB/s] [--persistent] [--dry-run]\n", brand.BinaryName)
			os.Exit(1)
		}

		if err := cmd.RunLimit(*configFile, *ip, *upload, *download, *persistent, *dryRun); err != nil {
			printer.Fprintf(os.Stderr, "Limit failed: %v\n", err)
			os.Exit(1)
		}

	case "remove":
		removeFlags := flag.NewFlagSet("remove", flag.ExitOnError)
		configFile := removeFlags.String("config", brand.DefaultConfigFile(), "Configuration file")
		removeFlags.StringVar(configFile, "c", brand.DefaultConfigFile(), "Configuration file (short)")

		ip := removeFlags.String("ip", "", "Target IP address")

		removeFlags.Parse(os.Args[2:])

		if *ip == "" {
			// Allow `remove <ip>` as a convenience
			if len(removeFlags.Args()) > 0 {
				*ip = removeFlags.Arg(0)
			} else {
				printer.Fprintf(os.Stderr, "Usage: %s remove --ip <ip>\n", brand.BinaryName)
				os.Exit(1)
			}
		}

		if err := cmd.RunRemove(*configFile, *ip); err != nil {
			printer.Fprintf(os.Stderr, "Remove failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		statusFlags := flag.NewFlagSet("status", flag.ExitOnError)
		configFile := statusFlags.String("config", brand.DefaultConfigFile(), "Configuration file")
		statusFlags.StringVar(configFile, "c", brand.DefaultConfigFile(), "Configuration file (short)")
		statusFlags.Parse(os.Args[2:])

		if err := cmd.RunStatus(*configFile); err != nil {
			printer.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		printer.Printf("%s version %s\n", brand.Name, brand.Version)
		printer.Printf("Build: %s\n", brand.BuildTime)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  scan      Discover devices on the local network
            Options: --interface (-i) <iface>, --ping, --nmap, --resolve
  monitor   Block all traffic for a device
            Options: --ip <ip>, --persistent (-p), --dry-run (-n)
  limit     Limit bandwidth for a device
            Options: --ip <ip>, --upload (-u) KB/s, --download (-d) KB/s,
                     --persistent (-p), --dry-run (-n)
  remove    Remove all rules for a device
            Options: --ip <ip>
  status    Show packet filter state and tracked targets
  version   Print version info

All commands accept --config (-c) <file> (default %s).
monitor, limit and remove require root.

Examples:
  %s scan -i en0 --resolve
  sudo %s monitor --ip 192.168.1.50 --persistent
  sudo %s limit --ip 192.168.1.50 -u 100 -d 500
  sudo %s remove --ip 192.168.1.50
  sudo %s status
`,
		brand.Name, brand.Description,
		brand.BinaryName,
		brand.DefaultConfigFile(),
		brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName)
}
