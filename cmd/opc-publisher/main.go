package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/isabella232/iot-edge-opc-publisher/pkg/publisher"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "export":
		err = exportCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("opc-publisher %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to gateway configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := publisher.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := publisher.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := publisher.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

// exportCommand loads the published-nodes file and prints the rebuilt
// snapshot without starting any server or session.
func exportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to gateway configuration file")
	endpoint := fs.String("endpoint", "", "Only export nodes for this endpoint URL")
	includeRemoved := fs.Bool("include-removed", false, "Include items queued for removal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := publisher.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Audit.ConnString = "" // offline: no audit trail

	rt, err := publisher.New(cfg)
	if err != nil {
		return err
	}

	entries, version := rt.Registry().ExportGrouped(*endpoint, *includeRemoved)
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "node config version: %d\n", version)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9600/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"publisher_sessions_configured": 0,
		"publisher_sessions_connected":  0,
		"publisher_items_monitored":     0,
		"publisher_node_config_version": 0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] sessions=%.0f connected=%.0f monitored=%.0f version=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["publisher_sessions_configured"],
		targets["publisher_sessions_connected"],
		targets["publisher_items_monitored"],
		targets["publisher_node_config_version"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`OPC Publisher CLI

Usage:
  opc-publisher <command> [flags]

Commands:
  run        Start the publisher using the provided config
  validate   Load and validate a config file without starting the runtime
  export     Rebuild the published-nodes snapshot and print it as JSON
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  opc-publisher run -config ./data/config.yaml
  opc-publisher validate -config ./data/config.yaml
  opc-publisher export -config ./data/config.yaml -endpoint opc.tcp://plc1:4840
  opc-publisher stats -url http://localhost:9600/metrics -interval 1s
`)
}
