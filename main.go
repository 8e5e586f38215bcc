package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/locallibrary/internal/cli"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run(cfg *config.Config) error
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		entrypoint.Run(config.NewConfig(), Version)
		return
	}

	var cmd command
	switch os.Args[1] {
	case "seed":
		cmd = cli.NewSeedCommand()
	case "create-user":
		cmd = cli.NewCreateUserCommand()
	case "version":
		fmt.Printf("locallibrary %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(config.NewConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  seed         Load a sample catalog into the database\n")
	fmt.Fprintf(os.Stderr, "  create-user  Create an account\n")
	fmt.Fprintf(os.Stderr, "  version      Print the build version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
