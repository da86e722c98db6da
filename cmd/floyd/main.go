package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/floyd-ai/floyd/internal/checkpoint"
	"github.com/floyd-ai/floyd/internal/config"
	"github.com/floyd-ai/floyd/internal/consts"
	"github.com/floyd-ai/floyd/internal/engine"
	"github.com/floyd-ai/floyd/internal/interrupt"
	"github.com/floyd-ai/floyd/internal/logger"
	"github.com/floyd-ai/floyd/internal/permission"
	"github.com/floyd-ai/floyd/internal/sandbox"
	"github.com/floyd-ai/floyd/internal/tools"
)

var (
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "floyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", config.GetConfigPath(), "path to config file")
		workDir     = flag.String("workdir", ".", "project working directory")
		useSandbox  = flag.Bool("sandbox", false, "run tools inside an isolated project clone")
		yolo        = flag.Bool("yolo", false, "skip per-call prompts while sandboxed")
		autoConfirm = flag.Bool("auto-confirm", false, "approve moderate tools without prompting")
		logLevel    = flag.String("log-level", "", "override configured log level")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *workDir != "." {
		cfg.WorkingDir = *workDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *autoConfirm {
		cfg.Permissions.AutoConfirm = true
	}
	if *yolo {
		cfg.YoloMode = true
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Global().Close()

	// Tool registry and permission gate.
	registry := tools.NewRegistry()
	registry.Register(&tools.ReadFileTool{})
	registry.Register(&tools.ListDirTool{})
	registry.Register(&tools.WriteFileTool{})
	registry.Register(&tools.DeleteFileTool{})
	registry.Register(tools.NewRunCommandTool(cfg.WorkingDir, time.Duration(cfg.CommandTimeout)*time.Second))

	permReg := permission.NewRegistry()
	registry.ExportPermissions(permReg)
	gate := permission.NewGate(permReg, permission.Options{
		AutoConfirm:             cfg.Permissions.AutoConfirm,
		LegacyDenyUninitialized: cfg.Permissions.LegacyDenyUninitialized,
	})

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		gate.SetPromptCallback(terminalPrompt)
	} else if !cfg.Permissions.AutoConfirm && !cfg.YoloMode {
		fmt.Fprintln(os.Stderr, infoStyle.Render(
			"stdin is not a terminal; confirmation prompts will fail unless -auto-confirm or -yolo is set"))
	}

	// Interrupt controller owns Ctrl+C for the whole process.
	interrupts := interrupt.NewController(interrupt.Options{
		ConsecutiveWindow:  time.Duration(cfg.Interrupts.ConsecutiveWindowMs) * time.Millisecond,
		ForceExitThreshold: cfg.Interrupts.ForceExitThreshold,
	})
	interrupts.Initialize()
	defer interrupts.Cleanup()

	events := interrupts.SubscribeEvents()
	go func() {
		for event := range events {
			switch event.Action {
			case interrupt.ActionForceExit:
				fmt.Fprintln(os.Stderr, warningStyle.Render("force exit"))
				os.Exit(130)
			case interrupt.ActionConfirmExit:
				fmt.Fprintln(os.Stderr, infoStyle.Render("press Ctrl+C again to exit"))
			}
		}
	}()

	// Checkpoint store for rollback outside sandbox sessions.
	store, err := checkpoint.NewSQLiteStore(cfg.CheckpointDB)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()
	if _, err := store.Prune(context.Background(), consts.DefaultCheckpointRetention); err != nil {
		logger.Warn("checkpoint prune failed: %v", err)
	}

	sandboxMgr := sandbox.NewManager(sandbox.Options{
		ExcludePatterns: cfg.Sandbox.ExcludePatterns,
		AutoCleanup:     cfg.Sandbox.AutoCleanup,
		TempDir:         cfg.Sandbox.TempDir,
	})

	var watcher *sandbox.ChangeWatcher
	if *useSandbox {
		session, err := sandboxMgr.Start(cfg.WorkingDir)
		if err != nil {
			return fmt.Errorf("failed to start sandbox: %w", err)
		}
		fmt.Println(infoStyle.Render("sandbox session " + session.ID + " at " + session.SandboxRoot))
		if watcher, err = sandbox.NewChangeWatcher(sandboxMgr); err != nil {
			logger.Warn("sandbox change watcher unavailable: %v", err)
		}
	}
	defer func() {
		if watcher != nil {
			watcher.Close()
		}
		if sandboxMgr.IsActive() {
			sandboxMgr.Discard()
		}
	}()

	runner := engine.NewRunner(engine.Options{
		Gate:        gate,
		Interrupts:  interrupts,
		Sandbox:     sandboxMgr,
		Tools:       registry,
		Checkpoints: store,
		Yolo:        cfg.YoloMode,
	})

	return repl(runner, gate, sandboxMgr, interrupts)
}

// repl reads "tool {json-params}" lines and control commands from stdin.
func repl(runner *engine.Runner, gate *permission.Gate, sandboxMgr *sandbox.Manager, interrupts *interrupt.Controller) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	fmt.Println(infoStyle.Render(`enter "<tool> {json params}", or :review :commit :discard :audit :quit`))
	for {
		fmt.Print(promptStyle.Render("floyd> "))
		interrupts.SetState(interrupt.StateIdle)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			done, err := handleCommand(line, gate, sandboxMgr)
			if err != nil {
				fmt.Fprintln(os.Stderr, warningStyle.Render(err.Error()))
			}
			if done {
				return nil
			}
			continue
		}

		name, rawParams, _ := strings.Cut(line, " ")
		params := map[string]interface{}{}
		if strings.TrimSpace(rawParams) != "" {
			if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
				fmt.Fprintln(os.Stderr, warningStyle.Render("invalid JSON params: "+err.Error()))
				continue
			}
		}

		result, err := runner.RunTool(context.Background(), name, params)
		switch {
		case errors.Is(err, engine.ErrPermissionDenied):
			fmt.Println(infoStyle.Render("denied"))
		case err != nil:
			fmt.Fprintln(os.Stderr, warningStyle.Render(err.Error()))
		case result.Error != "":
			fmt.Fprintln(os.Stderr, warningStyle.Render(result.Error))
		default:
			out, _ := json.MarshalIndent(result.Result, "", "  ")
			fmt.Println(string(out))
		}
	}
}

func handleCommand(command string, gate *permission.Gate, sandboxMgr *sandbox.Manager) (done bool, err error) {
	switch command {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":review":
		review, err := sandboxMgr.ReviewChanges()
		if err != nil {
			return false, err
		}
		if review == "" {
			fmt.Println(infoStyle.Render("no changes"))
			return false, nil
		}
		fmt.Print(review)
		return false, nil
	case ":commit":
		result, err := sandboxMgr.Commit()
		if err != nil {
			return false, err
		}
		fmt.Printf("committed %d, failed %d, skipped %d\n",
			len(result.Committed), len(result.Failed), len(result.Skipped))
		for _, path := range result.Failed {
			fmt.Fprintln(os.Stderr, warningStyle.Render("failed: "+path))
		}
		return false, nil
	case ":discard":
		return false, sandboxMgr.Discard()
	case ":audit":
		return false, gate.ExportAudit(os.Stdout)
	default:
		return false, fmt.Errorf("unknown command %s", command)
	}
}

// terminalPrompt asks for confirmation on the controlling terminal.
func terminalPrompt(ctx context.Context, promptText string, level permission.Level) (bool, error) {
	text := promptText
	if level == permission.LevelDangerous {
		// Re-render the banner line in red for terminals.
		if banner, rest, found := strings.Cut(promptText, "\n"); found {
			text = warningStyle.Render(banner) + "\n" + rest
		}
	}
	fmt.Println(text)
	fmt.Print(promptStyle.Render("[y/N] "))

	answerCh := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answerCh <- answer
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case answer := <-answerCh:
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
}
