// Package main provides the tabpilot terminal frontend: an interactive chat
// loop driving the browser agent engine against a real Chromium page, with
// approval prompts answered inline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tabpilot/tabpilot/pkg/agent"
	"github.com/tabpilot/tabpilot/pkg/agent/session"
	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/browser"
	"github.com/tabpilot/tabpilot/pkg/config"
	"github.com/tabpilot/tabpilot/pkg/llm/openai"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration. Flags override the persisted
// configuration for this run only.
type CLIConfig struct {
	ConfigFile  string
	APIKey      string
	BaseURL     string
	Model       string
	Headed      bool
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("tabpilot v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Fatalf("Application error: %v", err)
	}
	cancel()
}

// parseFlags parses command line flags and environment variables.
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (default ~/.tabpilot/config.json)")
	flag.StringVar(&cliConfig.APIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "API key (or set OPENAI_API_KEY env var)")
	flag.StringVar(&cliConfig.BaseURL, "base-url", os.Getenv("OPENAI_BASE_URL"), "Chat API base URL (or set OPENAI_BASE_URL env var)")
	flag.StringVar(&cliConfig.Model, "model", "", "Model to use (overrides configured model)")
	flag.BoolVar(&cliConfig.Headed, "headed", false, "Show the browser window")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tabpilot - browser automation agent\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tabpilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     API key for the chat endpoint\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL    Base URL for OpenAI-compatible endpoints\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tabpilot                                 # chat with the configured model\n")
		fmt.Fprintf(os.Stderr, "  tabpilot -headed                         # watch the browser work\n")
		fmt.Fprintf(os.Stderr, "  tabpilot -model gpt-4o -base-url https://api.openrouter.ai/api/v1\n")
	}

	flag.Parse()
	return cliConfig
}

// run wires the engine and starts the chat loop.
func run(ctx context.Context, cliConfig *CLIConfig) error {
	settings, err := config.NewFileStore(cliConfig.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	settings.Update(func(c *config.Config) {
		if cliConfig.APIKey != "" {
			c.APIKey = cliConfig.APIKey
		}
		if cliConfig.BaseURL != "" {
			c.APIURL = cliConfig.BaseURL
		}
		if cliConfig.Model != "" {
			c.Model = cliConfig.Model
		}
		if cliConfig.Headed {
			c.Headless = false
		}
		// First run: every browser tool on. The saved config wins later.
		if len(c.EnabledTools) == 0 {
			c.EnabledTools = map[string]bool{}
			for _, def := range tools.Catalog() {
				c.EnabledTools[def.Name] = true
			}
		}
	})

	cfg := settings.Get()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required. Set OPENAI_API_KEY or use -api-key")
	}

	provider, err := openai.NewProvider(cfg.APIKey,
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.APIURL),
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	store, err := session.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	surface, err := browser.NewPlaywrightSurface(browser.SurfaceOptions{
		Headless:        cfg.Headless,
		MaxContentChars: cfg.MaxContextChars,
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer surface.Close()

	opts := []agent.Option{}
	if cfg.VisionAPIKey != "" && cfg.VisionModel != "" {
		opts = append(opts, agent.WithVisionProvider(
			openai.NewVisionClient(cfg.VisionAPIKey, cfg.VisionAPIURL, cfg.VisionModel)))
	}

	chat := newChat(settings, surface)
	opts = append(opts, agent.WithEventEmitter(chat.handleEvent))

	engine, err := agent.New(settings, provider, surface, store, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	chat.engine = engine

	fmt.Printf("tabpilot v%s\n", version)
	fmt.Printf("Model: %s\n", cfg.Model)
	fmt.Printf("Session: %s\n", store.Current().Title())
	fmt.Println("Type a message, /help for commands, exit to quit.")
	fmt.Println()

	return chat.Run(ctx)
}
