package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
)

func usage() {
	fmt.Println("Usage: deployer <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  log       - log the agent config and its resources to a tracking run")
	fmt.Println("  register  - register a logged agent as a catalog model version")
	fmt.Println("  deploy    - serve a model version and attach reviewer instructions")
	fmt.Println("  wait      - block until the model's endpoint is ready")
	fmt.Println("  grant     - give users CAN_QUERY on the model's endpoint")
	fmt.Println("  find      - print the deployment serving a model")
	fmt.Println("  all       - log, register, deploy, wait and grant in one go")
	fmt.Println("  token     - issue an API bearer token (needs JWT_SECRET)")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <path>          - agent YAML config (log, all)")
	fmt.Println("  -model <c.s.m>          - catalog model name")
	fmt.Println("  -model-uri <uri>        - model URI printed by log (register)")
	fmt.Println("  -version <n>            - model version (deploy)")
	fmt.Println("  -users <a,b>            - users to grant (grant, all)")
	fmt.Println("  -watch                  - follow the endpoint in a terminal UI")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]

	// token only needs the signing secret
	if command == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			logger.Fatal("failed to issue token", "error", err)
		}
		return
	}

	flags, err := config.ParseDeployFlags(command, os.Args[2:])
	if err != nil {
		logger.Fatal("invalid flags", "command", command, "error", err)
	}

	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	client, err := platform.New(platform.Config{Host: cfg.Host, Token: cfg.Token, RPS: cfg.PlatformRPS})
	if err != nil {
		logger.Fatal("failed to create platform client", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &CLI{platform: client, deployer: deploy.New(client), flags: flags}

	var run func(context.Context) error

	switch command {
	case "log":
		run = cli.Log
	case "register":
		run = cli.Register
	case "deploy":
		run = cli.Deploy
	case "wait":
		run = cli.Wait
	case "grant":
		run = cli.Grant
	case "find":
		run = cli.Find
	case "all":
		run = cli.All
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	if err := run(ctx); err != nil {
		logger.Fatal("command failed", "command", command, "error", err)
	}
}
