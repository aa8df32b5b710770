// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/config"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"list", "--page", "3"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "3", p.Flag("page"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"list", "--created-from=2024-01-01"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "2024-01-01", p.Flag("created-from"))
			},
		},
		{
			name:    "declared bool keeps the next argument positional",
			args:    []string{"rm", "--yes", "d1"},
			bools:   []string{"yes"},
			wantSub: "rm",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("yes"))
				assert.Equal(t, "d1", p.Positional(1))
			},
		},
		{
			name:    "bool with explicit value",
			args:    []string{"list", "--desc=false"},
			bools:   []string{"desc"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.BoolFlag("desc"))
				assert.True(t, p.HasFlag("desc"))
			},
		},
		{
			name:    "repeated flag",
			args:    []string{"list", "--category", "lang=en", "--category", "lang=fr"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, []string{"lang=en", "lang=fr"}, p.Flags("category"))
				assert.Equal(t, "lang=fr", p.Flag("category"))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"upload", "--", "--odd-name.pdf"},
			wantSub: "upload",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "--odd-name.pdf", p.Positional(1))
				assert.False(t, p.HasFlag("odd-name.pdf"))
			},
		},
		{
			name:    "trailing value flag becomes a switch",
			args:    []string{"list", "--sort"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("sort"))
				assert.Empty(t, p.Flag("sort"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	p := NewArgParser([]string{"list", "--page", "2", "--size", "abc", "--zero", "0"})

	n, err := p.FlagInt("page", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.FlagInt("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = p.FlagInt("size", 10)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "--size")

	_, err = p.FlagInt("zero", 10)
	assert.ErrorAs(t, err, &usage)
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	assert.Empty(t, p.Subcommand())
	assert.Equal(t, 0, p.PositionalCount())
	assert.Empty(t, p.PositionalFrom(1))
	assert.Equal(t, "dflt", p.FlagOrDefault("x", "dflt"))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		b, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"false", "no", "N", "0", "off"} {
		b, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.False(t, b, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	got, err := ParsePairs("category", []string{"lang=en", " lang = fr ", "type=report"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"lang": {"en", "fr"}, "type": {"report"}}, got)

	got, err = ParsePairs("category", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"lang", "=en", "lang="} {
		_, err := ParsePairs("category", []string{bad})
		var usage *UsageError
		assert.ErrorAs(t, err, &usage, bad)
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no arguments starts the UI", argv: nil, wantCmd: CmdTUI},
		{name: "explicit tui", argv: []string{"tui"}, wantCmd: CmdTUI},
		{name: "help flag", argv: []string{"docs", "--help"}, wantCmd: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{
			name:    "global flags anywhere",
			argv:    []string{"chats", "--api", "http://h/api/", "list", "-q", "--json", "--config=/tmp/c.toml"},
			wantCmd: CmdChats,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "http://h/api/", a.APIURL)
				assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
				assert.True(t, a.Quiet)
				assert.True(t, a.JSON)
				assert.Equal(t, "list", a.Subcommand)
			},
		},
		{
			name:    "chat with id",
			argv:    []string{"chat", "--chat", "2"},
			wantCmd: CmdChat,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "2", a.ChatID)
				assert.False(t, a.NewChat)
			},
		},
		{
			name:    "chats defaults to list",
			argv:    []string{"chats"},
			wantCmd: CmdChats,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "list", a.Subcommand)
			},
		},
		{
			name:    "chats rm with yes",
			argv:    []string{"chats", "rm", "-y", "#2"},
			wantCmd: CmdChats,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "rm", a.Subcommand)
				assert.Equal(t, "#2", a.Target)
				assert.True(t, a.Yes)
			},
		},
		{
			name:    "documents alias",
			argv:    []string{"documents", "download", "d1", "--out", "/tmp/x"},
			wantCmd: CmdDocs,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "download", a.Subcommand)
				assert.Equal(t, "d1", a.Target)
				assert.Equal(t, "/tmp/x", a.Out)
			},
		},
		{
			name:    "export defaults",
			argv:    []string{"export"},
			wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Empty(t, a.Target)
				assert.Equal(t, "md", a.Format)
				assert.Equal(t, ".", a.Out)
			},
		},
		{
			name:    "export with target and format",
			argv:    []string{"export", "3", "--format", "HTML"},
			wantCmd: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "3", a.Target)
				assert.Equal(t, "html", a.Format)
			},
		},
		{
			name:    "config path",
			argv:    []string{"config", "path"},
			wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "path", a.Subcommand)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestParse_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"chat and new", []string{"chat", "--chat", "c1", "--new"}, "cannot be combined"},
		{"chats use without id", []string{"chats", "use"}, "missing chat id"},
		{"unknown chats subcommand", []string{"chats", "rename", "x"}, "unknown chats subcommand"},
		{"docs show without id", []string{"docs", "show"}, "missing document id"},
		{"docs upload without path", []string{"docs", "upload"}, "missing file path"},
		{"unknown docs subcommand", []string{"docs", "zip"}, "unknown docs subcommand"},
		{"bad export format", []string{"export", "--format", "pdf"}, "unsupported export format"},
		{"bad config subcommand", []string{"config", "edit"}, "unknown config subcommand"},
		{"config flag without value", []string{"--config"}, "requires a value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.argv)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitUsageError, ExitCode(err))
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "docs", CmdDocs.String())
	assert.Equal(t, "Command(99)", Command(99).String())
}

func TestPrintUsageMentionsCommands(t *testing.T) {
	var b strings.Builder
	PrintUsage(&b)
	for _, name := range []string{"chat", "chats", "docs", "export", "config", Version} {
		assert.Contains(t, b.String(), name)
	}
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", NewUsageError("bad"), ExitUsageError},
		{"not found", &NotFoundError{Resource: "chat", ID: "x"}, ExitNotFoundError},
		{"api 404", NewCommandError("docs", "show", "gone", &api.Error{Status: 404}), ExitNotFoundError},
		{"config", fmt.Errorf("load: %w", config.ValidateErrors{{Field: "api.base_url", Message: "bad"}}), ExitConfigError},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ExitTimeoutError},
		{"net timeout", timeoutErr{}, ExitTimeoutError},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("refused")}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewCommandError("docs", "upload", "", inner)
	assert.Equal(t, "docs upload failed: connection reset", err.Error())
	assert.ErrorIs(t, err, inner)

	err = NewCommandError("docs", "upload", "Upload failed.", inner)
	assert.Equal(t, "docs upload failed: Upload failed.", err.Error())
}

func TestDisplayError(t *testing.T) {
	var b strings.Builder
	DisplayError(&b, NewUsageError("missing id"))
	assert.Contains(t, b.String(), "[ERROR]")
	assert.Contains(t, b.String(), "missing id")

	b.Reset()
	DisplayError(&b, nil)
	assert.Empty(t, b.String())
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestIsYes(t *testing.T) {
	assert.True(t, isYes("y\n"))
	assert.True(t, isYes(" YES "))
	assert.False(t, isYes(""))
	assert.False(t, isYes("nope"))
}

func TestSortField(t *testing.T) {
	f, err := sortField("file")
	require.NoError(t, err)
	assert.Equal(t, "original_file_name", f)

	f, err = sortField("created_at")
	require.NoError(t, err)
	assert.Equal(t, "created_at", f)

	f, err = sortField("")
	require.NoError(t, err)
	assert.Empty(t, f)

	_, err = sortField("size")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestDescribeFilter(t *testing.T) {
	assert.Equal(t, "No filter", describeFilter(api.Filter{}))

	got := describeFilter(api.Filter{
		Author:      "Ann",
		CreatedFrom: "2024-01-01",
		CategoryIDs: []api.CategoryFilter{{ID: "lang", Categories: []string{"en", "fr"}}},
	})
	assert.Equal(t, "Filter: author=Ann created-from=2024-01-01 lang=en|fr", got)
}

func TestDateOnly(t *testing.T) {
	assert.Equal(t, "2024-03-01", dateOnly("2024-03-01T10:00:00Z"))
	assert.Equal(t, "2024", dateOnly("2024"))
}
