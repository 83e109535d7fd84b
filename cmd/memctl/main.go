package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"research-collab/internal/memory"
	"research-collab/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/engine.yaml", "engine config file")
	channel := flag.String("channel", "", "channel id")
	user := flag.String("user", "", "user id for digest rendering")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	if *channel == "" {
		fmt.Fprintln(os.Stderr, "memctl: -channel is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memctl: load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := memory.NewStore(ctx, cfg.Storage.Memory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memctl: open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch flag.Arg(0) {
	case "digest":
		rec, err := store.Load(ctx, *channel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "memctl: load record: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(memory.BuildContext(rec, *user))
	case "record":
		rec, err := store.Load(ctx, *channel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "memctl: load record: %v\n", err)
			os.Exit(1)
		}
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "memctl: encode record: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: memctl [-config path] -channel <id> [-user <id>] <command>

Commands:
  digest    print the prompt-ready context digest for a channel
  record    print the raw memory record as JSON`)
}
