package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tabpilot/tabpilot/pkg/agent"
	"github.com/tabpilot/tabpilot/pkg/agent/approval"
	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/browser"
	"github.com/tabpilot/tabpilot/pkg/config"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// chat is the terminal conversation loop. The engine runs turns synchronously
// on the loop goroutine, so event handling and approval prompts share stdin
// without races.
type chat struct {
	engine   *agent.Engine
	settings *config.FileStore
	surface  *browser.PlaywrightSurface
	reader   *bufio.Reader

	// Streamed snapshots are cumulative; track printed prefixes to emit
	// only the new tail.
	printedContent int
	printedThink   int
	inThink        bool
}

func newChat(settings *config.FileStore, surface *browser.PlaywrightSurface) *chat {
	return &chat{
		settings: settings,
		surface:  surface,
		reader:   bufio.NewReader(os.Stdin),
	}
}

// Run drives the conversation until the user exits or the context ends.
func (c *chat) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Print("> ")
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			if err := c.handleCommand(ctx, line); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		default:
			c.runSend(ctx, line)
		}
	}
}

// handleCommand dispatches slash commands.
func (c *chat) handleCommand(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		fmt.Println("/new               start a fresh session")
		fmt.Println("/sessions          list sessions")
		fmt.Println("/switch <id>       switch to a session")
		fmt.Println("/clear             clear the current session")
		fmt.Println("/retry             regenerate the last answer")
		fmt.Println("/attach            attach the current page as one-shot context")
		fmt.Println("/pin               pin the current page as a permanent memory card")
		fmt.Println("/summarize         summarize the current page")
		fmt.Println("/tools             list enabled tools")
		return nil

	case "/new":
		s, err := c.engine.NewSession()
		if err != nil {
			return err
		}
		fmt.Printf("started session %s\n", s.ID())
		return nil

	case "/sessions":
		for _, s := range c.engine.Store().Sessions() {
			marker := " "
			if s.ID() == c.engine.Store().Current().ID() {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, s.ID(), s.Title())
		}
		return nil

	case "/switch":
		if len(args) != 1 {
			return fmt.Errorf("usage: /switch <id>")
		}
		return c.engine.SwitchSession(args[0])

	case "/clear":
		return c.engine.ClearSession()

	case "/retry":
		last := c.engine.Store().Current().LastMessage()
		if last == nil {
			return fmt.Errorf("nothing to retry")
		}
		c.resetPrinter()
		return c.engine.Retry(ctx, last.ID)

	case "/attach":
		page, err := c.capturePage(ctx)
		if err != nil {
			return err
		}
		c.engine.AttachContext(*page)
		fmt.Printf("attached: %s\n", page.Title)
		return nil

	case "/pin":
		page, err := c.capturePage(ctx)
		if err != nil {
			return err
		}
		c.engine.AddPermanentCard(*page)
		fmt.Printf("pinned: %s\n", page.Title)
		return nil

	case "/summarize":
		page, err := c.capturePage(ctx)
		if err != nil {
			return err
		}
		c.engine.AttachContext(*page)
		c.runSend(ctx, c.settings.Get().SummaryPrompt)
		return nil

	case "/tools":
		cfg := c.settings.Get()
		for _, def := range tools.Catalog() {
			if cfg.EnabledTools[def.Name] {
				fmt.Printf("  %s\n", def.Name)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

// runSend executes one turn and prints any terminal error.
func (c *chat) runSend(ctx context.Context, text string) {
	c.resetPrinter()
	if err := c.engine.Send(ctx, text); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// capturePage reads the live page into a context chip.
func (c *chat) capturePage(ctx context.Context) (*browser.PageContext, error) {
	page, err := c.surface.ReadContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return page, nil
}

func (c *chat) resetPrinter() {
	c.printedContent = 0
	c.printedThink = 0
	c.inThink = false
}

// handleEvent renders engine progress. Runs on the engine's turn goroutine,
// which is the chat loop goroutine itself.
func (c *chat) handleEvent(ev *types.AgentEvent) {
	switch ev.Type {
	case types.EventTypeThinkingContent:
		tail := ev.Content[min(c.printedThink, len(ev.Content)):]
		if tail == "" {
			return
		}
		if !c.inThink {
			fmt.Print("\n[thinking] ")
			c.inThink = true
		}
		fmt.Print(tail)
		c.printedThink = len(ev.Content)

	case types.EventTypeMessageContent:
		tail := ev.Content[min(c.printedContent, len(ev.Content)):]
		if tail == "" {
			return
		}
		if c.inThink {
			fmt.Println()
			c.inThink = false
		}
		fmt.Print(tail)
		c.printedContent = len(ev.Content)

	case types.EventTypeToolCall:
		fmt.Printf("\n[tool] %s %v\n", ev.ToolName, ev.ToolInput)

	case types.EventTypeToolResult:
		preview := ev.ToolOutput
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		fmt.Printf("[result] %s\n", preview)
		// A new model call follows; its stream starts from scratch.
		c.printedContent = 0
		c.printedThink = 0

	case types.EventTypeToolApprovalRequest:
		c.promptApproval(ev)

	case types.EventTypeCanceled:
		fmt.Printf("\n[stopped] %s\n", ev.Content)

	case types.EventTypeError:
		fmt.Printf("\n[error] %v\n", ev.Err)

	case types.EventTypeTurnEnd:
		fmt.Println()
	}
}

// promptApproval blocks the turn on the user's answer.
func (c *chat) promptApproval(ev *types.AgentEvent) {
	fmt.Printf("\n[approval] %s wants to run with %v\n", ev.ToolName, ev.ToolInput)
	fmt.Print("allow? [y]es once / [t]his turn / [s]ession / [a]ll tools this session / [n]o: ")

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.engine.HandleApproval(&approval.Response{ApprovalID: ev.ApprovalID, Granted: false})
		return
	}

	resp := &approval.Response{ApprovalID: ev.ApprovalID}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		resp.Granted = true
		resp.Scope = approval.ScopeOnce
	case "t", "turn":
		resp.Granted = true
		resp.Scope = approval.ScopeTurn
	case "s", "session":
		resp.Granted = true
		resp.Scope = approval.ScopeSession
	case "a", "all":
		resp.Granted = true
		resp.Scope = approval.ScopeSession
		resp.AllTools = true
	}
	c.engine.HandleApproval(resp)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
