package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/swxsoc/swxingest/internal/config"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Println("Usage: swxingest config <check|lock|show> [--config PATH]")
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action, rest := args[0], args[1:]
	switch action {
	case "check":
		return runConfigCheck(rest)
	case "lock":
		return runConfigLock(rest)
	case "show":
		return runConfigShow(rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := config.ResolvePath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		return 1
	}
	if path == "" {
		path = "(defaults + environment)"
	}
	fmt.Printf("Configuration valid: %s\n", path)
	fmt.Printf("  timeseries backend:  %s\n", cfg.TimeSeries.Backend)
	fmt.Printf("  annotations backend: %s\n", cfg.Annotations.Backend)
	fmt.Printf("  secret bundles:      %d\n", len(cfg.Secrets.Bundles))
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("config lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := config.ResolvePath(*configPath)
	if path == "" {
		fmt.Fprintln(os.Stderr, "config lock needs --config or $SWXINGEST_CONFIG")
		return 1
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "config.yaml")
	}

	manifest, err := config.Lock(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s in %s\n", path, manifest)
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	redact(&cfg.TimeSeries.InfluxDB.Token)
	redact(&cfg.Webhook.Secret)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	fmt.Print(string(out))
	return 0
}

func redact(s *string) {
	if *s != "" {
		*s = "********"
	}
}
