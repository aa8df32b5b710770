// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and the shared command environment.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/jeranaias/scholar-tui/internal/app"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdChats
	CmdDocs
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdChat:    "chat",
	CmdChats:   "chats",
	CmdDocs:    "docs",
	CmdExport:  "export",
	CmdConfig:  "config",
	CmdVersion: "version",
	CmdHelp:    "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	APIURL     string
	Verbose    bool
	Quiet      bool
	JSON       bool

	// Command-specific
	Subcommand string
	Target     string // chat id, document id or file path
	ChatID     string // chat --chat
	NewChat    bool   // chat --new
	Yes        bool   // skip confirmation
	Format     string // export format
	Out        string // output directory

	// Raw args after the command name
	Raw []string

	// Flags holds the remaining command options (--page, --category, ...)
	Flags *ArgParser
}

const usageText = `scholar - terminal client for a document-aware chat assistant

Usage:
  scholar [tui]                          Start the terminal UI (default)
  scholar chat [--chat ID] [--new]       Line-mode chat
  scholar chats list                     List local chats (* marks the active one)
  scholar chats new                      Start a chat and make it active
  scholar chats use ID|N                 Make a chat active
  scholar chats rm ID|N [--yes]          Delete a chat
  scholar docs list [options]            List documents
  scholar docs show ID                   Print the stored text of a document
  scholar docs download ID [--out DIR]   Save the original file
  scholar docs upload PATH [options]     Upload a file
  scholar docs rm ID [--yes]             Delete a document
  scholar export [ID] [--format F] [--out DIR]
                                         Export a chat (md, html or json)
  scholar config [show|path]             Show the configuration
  scholar version                        Show version information

Document list options:
  --page N  --size N  --sort FIELD  --desc
  --file TEXT  --folder TEXT  --author TEXT
  --created-from DATE  --created-to DATE  --updated-from DATE  --updated-to DATE
  --category ID=VALUE                    Repeatable

  Sort fields: folder, file, created, updated, author

Upload options:
  --folder TEXT  --author TEXT  --created DATE  --updated DATE
  --category ID=VALUE                    Repeatable

Global flags:
  --config PATH   Use an explicit config file
  --api URL       Override the API base URL
  -v, --verbose   Debug logging, mirrored to stderr in line mode
  -q, --quiet     Less output
  --json          JSON output for list and show commands

Dates use YYYY-MM-DD. Chat numbers N refer to 'scholar chats list'.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer, args Args) {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if args.JSON {
		_ = NewJSONResponse("version", data).Write(w)
		return
	}
	fmt.Fprintf(w, "scholar version %s\n", data.Version)
	fmt.Fprintf(w, "  Git commit: %s\n", data.GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", data.BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s\n", data.GoVersion, data.Platform)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	remaining, args, wantHelp, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if wantHelp {
		return CmdHelp, args, nil
	}
	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch name {
	case "tui":
		return CmdTUI, args, nil
	case "chat":
		return CmdChat, args, parseChatArgs(&args)
	case "chats":
		return CmdChats, args, parseChatsArgs(&args)
	case "docs", "documents", "doc":
		return CmdDocs, args, parseDocsArgs(&args)
	case "export":
		return CmdExport, args, parseExportArgs(&args)
	case "config":
		return CmdConfig, args, parseConfigArgs(&args)
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, NewUsageError(fmt.Sprintf("unknown command %q", remaining[0]))
	}
}

// parseGlobalFlags extracts global flags, which may appear anywhere.
func parseGlobalFlags(argv []string) (remaining []string, args Args, wantHelp bool, err error) {
	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(argv) {
			return "", NewUsageError(fmt.Sprintf("%s requires a value", name))
		}
		*i++
		return argv[*i], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			remaining = append(remaining, argv[i:]...)
			break
		}

		switch {
		case arg == "--config":
			if args.ConfigPath, err = value(&i, arg); err != nil {
				return nil, args, false, err
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--api":
			if args.APIURL, err = value(&i, arg); err != nil {
				return nil, args, false, err
			}
		case strings.HasPrefix(arg, "--api="):
			args.APIURL = strings.TrimPrefix(arg, "--api=")
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "--json":
			args.JSON = true
		case arg == "-h" || arg == "--help":
			wantHelp = true
		case arg == "--version":
			remaining = append([]string{"version"}, remaining...)
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args, wantHelp, nil
}

func parseChatArgs(args *Args) error {
	p := NewArgParser(args.Raw, "new")
	args.Flags = p
	args.ChatID = p.Flag("chat")
	args.NewChat = p.BoolFlag("new")
	if args.ChatID != "" && args.NewChat {
		return NewUsageError("--chat and --new cannot be combined")
	}
	return nil
}

func parseChatsArgs(args *Args) error {
	p := NewArgParser(args.Raw, "yes", "y")
	args.Flags = p
	args.Subcommand = strings.ToLower(p.Subcommand())
	if args.Subcommand == "" {
		args.Subcommand = "list"
	}
	args.Target = p.Positional(1)
	args.Yes = p.BoolFlag("yes") || p.BoolFlag("y")

	switch args.Subcommand {
	case "list", "ls", "new":
	case "rm", "delete", "use":
		if args.Target == "" {
			return ErrMissingArgument("chat id", "scholar chats "+args.Subcommand+" ID|N")
		}
	default:
		return NewUsageError(fmt.Sprintf("unknown chats subcommand %q", args.Subcommand))
	}
	return nil
}

func parseDocsArgs(args *Args) error {
	p := NewArgParser(args.Raw, "desc", "yes", "y")
	args.Flags = p
	args.Subcommand = strings.ToLower(p.Subcommand())
	if args.Subcommand == "" {
		args.Subcommand = "list"
	}
	args.Target = p.Positional(1)
	args.Yes = p.BoolFlag("yes") || p.BoolFlag("y")
	args.Out = p.Flag("out")

	switch args.Subcommand {
	case "list", "ls":
	case "show", "cat", "download", "get", "rm", "delete":
		if args.Target == "" {
			return ErrMissingArgument("document id", "scholar docs "+args.Subcommand+" ID")
		}
	case "upload", "add":
		if args.Target == "" {
			return ErrMissingArgument("file path", "scholar docs upload PATH")
		}
	default:
		return NewUsageError(fmt.Sprintf("unknown docs subcommand %q", args.Subcommand))
	}
	return nil
}

func parseExportArgs(args *Args) error {
	p := NewArgParser(args.Raw)
	args.Flags = p
	args.Target = p.Positional(0)
	args.Format = strings.ToLower(p.FlagOrDefault("format", "md"))
	args.Out = p.FlagOrDefault("out", ".")

	switch args.Format {
	case "md", "markdown", "html", "htm", "json":
		return nil
	}
	return NewUsageError(fmt.Sprintf("unsupported export format %q (use md, html or json)", args.Format))
}

func parseConfigArgs(args *Args) error {
	p := NewArgParser(args.Raw)
	args.Flags = p
	args.Subcommand = strings.ToLower(p.Subcommand())
	if args.Subcommand == "" {
		args.Subcommand = "show"
	}
	switch args.Subcommand {
	case "show", "path":
		return nil
	}
	return NewUsageError(fmt.Sprintf("unknown config subcommand %q", args.Subcommand))
}

// =============================================================================
// COMMAND ENVIRONMENT
// =============================================================================

// Env is what a command handler runs against.
type Env struct {
	App  *app.App
	Args Args
	Out  io.Writer
	Err  io.Writer

	// Confirm asks a yes/no question. A nil Confirm declines.
	Confirm func(question string) bool

	// Input opens the line editor of the chat REPL.
	Input func() (LineReader, error)
}

// NewEnv returns an environment bound to the process's standard streams.
func NewEnv(a *app.App, args Args) *Env {
	env := &Env{
		App:     a,
		Args:    args,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Confirm: PromptYesNo,
	}
	env.Input = func() (LineReader, error) {
		dir := ""
		if a != nil {
			dir = a.Config.DataDir
		}
		return NewLinerInput(dir), nil
	}
	return env
}

// confirm asks question unless --yes was given.
func (e *Env) confirm(question string) bool {
	if e.Args.Yes {
		return true
	}
	if e.Confirm == nil {
		return false
	}
	return e.Confirm(question)
}

// info prints a status line unless --quiet was given.
func (e *Env) info(format string, a ...any) {
	if e.Args.Quiet {
		return
	}
	fmt.Fprintf(e.Err, format+"\n", a...)
}

// NewApp loads configuration and builds the application context.
// lineMode mirrors log records to stderr when --verbose is set.
func NewApp(args Args, lineMode bool) (*app.App, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}
	opts := app.Options{LogStderr: lineMode && args.Verbose}
	if args.Verbose {
		opts.LogLevel = "debug"
	}
	return app.New(cfg, opts)
}
