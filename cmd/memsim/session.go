package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/vkngwrapper/memsim/allocator"
	"github.com/vkngwrapper/memsim/cache"
	"golang.org/x/exp/slog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const banner = `
+----------------------------------------------------------+
|         MEMORY MANAGEMENT SIMULATOR                      |
|         OS Memory Concepts Demonstration                 |
+----------------------------------------------------------+
Type 'help' for available commands.

`

const helpText = `
=== Memory Management Simulator - Help ===

MEMORY COMMANDS:
  init memory <size>         Initialize physical memory (in bytes)
  set allocator <strategy>   Set allocation strategy:
                              - first_fit
                              - best_fit
                              - worst_fit
  malloc <size>              Allocate memory block of given size
  free <id>                  Free memory block by its ID
  dump memory                Display current memory state
  dump json                  Display current memory state as JSON
  stats                      Show memory statistics

CACHE COMMANDS:
  init cache                 Initialize cache hierarchy (interactive config)
  cache read <address>       Read from memory address through cache
  cache write <address>      Write to memory address (sets dirty bit)
  cache access <address>     Alias for 'cache read'
  cache stats                Show cache hit/miss statistics
  cache config               Show cache configuration
  cache json                 Show cache statistics as JSON
  cache reset                Reset cache statistics

GENERAL:
  help                       Show this help message
  clear                      Clear screen
  exit                       Exit the simulator

EXAMPLES:
  > init memory 1024
  > set allocator first_fit
  > malloc 100
  > malloc 200
  > free 1
  > dump memory
  > stats

==========================================
`

// SessionOptions configures a Session
type SessionOptions struct {
	// MemoryLatency overrides the main memory latency of every hierarchy built by 'init cache'
	MemoryLatency int
	CacheDefaults CacheFile
	// Interactive sessions print a banner and a prompt before each command
	Interactive bool
}

// Session is one run of the command loop. It owns its own allocator and cache hierarchy.
type Session struct {
	in      *bufio.Scanner
	out     io.Writer
	printer *message.Printer
	logger  *slog.Logger
	options SessionOptions

	allocator *allocator.Allocator
	hierarchy *cache.Hierarchy
}

// NewSession creates a session reading commands from in and writing results to out
func NewSession(in io.Reader, out io.Writer, logger *slog.Logger, options SessionOptions) *Session {
	if len(options.CacheDefaults.Levels) == 0 {
		options.CacheDefaults = DefaultCacheFile()
	}

	return &Session{
		in:        bufio.NewScanner(in),
		out:       out,
		printer:   message.NewPrinter(language.English),
		logger:    logger,
		options:   options,
		allocator: allocator.New(logger, allocator.CreateOptions{Flags: allocator.CreateExternallySynchronized}),
		hierarchy: cache.NewHierarchy(logger, cache.HierarchyOptions{Flags: cache.CreateExternallySynchronized}),
	}
}

// Run executes commands until the input is exhausted or an exit command is read
func (s *Session) Run() error {
	if s.options.Interactive {
		fmt.Fprint(s.out, banner)
	}

	for {
		if s.options.Interactive {
			fmt.Fprint(s.out, "> ")
		}

		if !s.in.Scan() {
			break
		}

		if !s.Execute(s.in.Text()) {
			return nil
		}
	}

	return s.in.Err()
}

// Execute runs a single command line. It returns false when the session should end.
func (s *Session) Execute(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return true
	}

	switch {
	case tokens[0] == "exit" || tokens[0] == "quit":
		fmt.Fprintln(s.out, "Goodbye!")
		return false
	case tokens[0] == "help":
		fmt.Fprint(s.out, helpText)
	case tokens[0] == "clear":
		fmt.Fprint(s.out, "\033[2J\033[1;1H")
	case tokens[0] == "init" && len(tokens) >= 3 && tokens[1] == "memory":
		s.initMemory(tokens[2])
	case tokens[0] == "init" && len(tokens) >= 2 && tokens[1] == "cache":
		s.initCache()
	case tokens[0] == "set" && len(tokens) >= 3 && tokens[1] == "allocator":
		s.setAllocator(tokens[2])
	case tokens[0] == "malloc" && len(tokens) >= 2:
		s.malloc(tokens[1])
	case tokens[0] == "free" && len(tokens) >= 2:
		s.free(tokens[1])
	case tokens[0] == "dump" && len(tokens) >= 2 && tokens[1] == "memory":
		s.dumpMemory()
	case tokens[0] == "dump" && len(tokens) >= 2 && tokens[1] == "json":
		s.dumpJSON()
	case tokens[0] == "stats":
		s.memoryStats()
	case tokens[0] == "cache" && len(tokens) >= 3 && (tokens[1] == "read" || tokens[1] == "access"):
		s.cacheAccess(tokens[2], false)
	case tokens[0] == "cache" && len(tokens) >= 3 && tokens[1] == "write":
		s.cacheAccess(tokens[2], true)
	case tokens[0] == "cache" && len(tokens) >= 2 && tokens[1] == "stats":
		s.cacheStats()
	case tokens[0] == "cache" && len(tokens) >= 2 && tokens[1] == "config":
		s.cacheConfig()
	case tokens[0] == "cache" && len(tokens) >= 2 && tokens[1] == "json":
		s.cacheJSON()
	case tokens[0] == "cache" && len(tokens) >= 2 && tokens[1] == "reset":
		s.cacheReset()
	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", line)
		fmt.Fprintln(s.out, "Type 'help' for available commands.")
	}

	return true
}

// prompt prints question and returns the next input line, or "" when input has run out
func (s *Session) prompt(question string) string {
	fmt.Fprint(s.out, question)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}
