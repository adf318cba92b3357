// Package shell implements the interactive line command reader.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

// Prompt is printed before each command when input is a terminal
const Prompt = "Enter a command: "

const usage = `Commands:
  mkdir <dir>              create a directory
  cd [path]                change directory ("..", "/", "~" supported)
  ls [path]                list a directory
  pwd                      print the current directory
  touch <file>             create an empty file
  cat <file>               print a file
  echo <file> <text...>    write text to a file ("\n" becomes a newline)
  echo -d <file>           empty a file
  grep <file> <pattern>    print lines containing pattern
  find [pattern]           list paths matching a glob such as **/*.txt
  mv <src> <dst-dir>       move into a directory
  cp <src> <dst>           copy recursively
  rm <path>                remove a file or directory tree
  help                     show this text
  exit                     leave the shell`

// Shell reads one command per line and runs it against op
type Shell struct {
	op     memfs.Operator
	in     io.Reader
	out    io.Writer
	prompt bool
}

// New creates a shell. The prompt is only shown when in is a terminal.
func New(op memfs.Operator, in io.Reader, out io.Writer) *Shell {
	return &Shell{op: op, in: in, out: out, prompt: isTerminal(in)}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run processes lines until "exit", end of input or ctx is cancelled
func (s *Shell) Run(ctx context.Context) error {
	logger := util.GetLogger("Shell.Run")

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			errs <- err
			close(lines)
		}()
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()

	for {
		if s.prompt {
			fmt.Fprint(s.out, Prompt)
		}
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Shell cancelled")
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errs
			}
			if s.Exec(line) {
				return nil
			}
		}
	}
}

// Exec runs one command line and reports whether the shell should exit
func (s *Shell) Exec(line string) (exit bool) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	cmd, args := args[0], args[1:]

	switch strings.ToLower(cmd) {
	case "exit", "quit":
		return true
	case "help":
		s.println(usage)
	case "mkdir":
		if s.need(args, 1, "Missing directory name.") {
			s.report(s.op.Mkdir(args[0]), "Directory '%s' created successfully", args[0])
		}
	case "cd":
		if err := s.op.Cd(arg(args, 0)); err != nil {
			s.fail(err)
			return false
		}
		s.printf("Current directory changed to '%s'\n", s.op.Pwd())
	case "ls":
		s.ls(arg(args, 0))
	case "pwd":
		s.printf("Current directory: '%s'\n", s.op.Pwd())
	case "touch":
		if s.need(args, 1, "Missing file name.") {
			s.report(s.op.Touch(args[0]), "Empty file '%s' created successfully", args[0])
		}
	case "cat":
		if s.need(args, 1, "Missing file name.") {
			s.cat(args[0])
		}
	case "echo":
		s.echo(args)
	case "grep":
		if s.need(args, 2, "Missing file name or pattern.") {
			s.grep(args[0], args[1])
		}
	case "find":
		s.find(arg(args, 0))
	case "mv":
		if s.need(args, 2, "Missing source or destination.") {
			s.report(s.op.Mv(args[0], args[1]), "Moved '%s' to '%s'", args[0], args[1])
		}
	case "cp":
		if s.need(args, 2, "Missing source or destination.") {
			s.report(s.op.Cp(args[0], args[1]), "Copied '%s' to '%s'", args[0], args[1])
		}
	case "rm":
		if s.need(args, 1, "Missing file or directory path.") {
			s.report(s.op.Rm(args[0]), "Removed '%s'", args[0])
		}
	default:
		s.printf("Error: Unknown command '%s'\n", cmd)
	}
	return false
}

func (s *Shell) ls(path string) {
	contents, err := s.op.Ls(path)
	if err != nil {
		s.fail(err)
		return
	}
	if len(contents) == 0 {
		s.println("Directory is empty.")
		return
	}
	s.println("Contents:")
	for _, item := range contents {
		s.printf("  %s\n", item)
	}
}

func (s *Shell) cat(name string) {
	contents, err := s.op.Cat(name)
	if err != nil {
		s.fail(err)
		return
	}
	s.printf("Contents of '%s':\n", name)
	s.println(contents)
}

// echo <file> <text...> joins the remaining words with single spaces.
// echo -d <file> empties the file.
func (s *Shell) echo(args []string) {
	if len(args) >= 1 && (args[0] == "-d" || args[0] == "--delete") {
		if s.need(args, 2, "Missing file name.") {
			s.report(s.op.Echo("", args[1], true), "Cleared file '%s'", args[1])
		}
		return
	}
	if !s.need(args, 2, "Missing file name or text.") {
		return
	}
	text := strings.Join(args[1:], " ")
	s.report(s.op.Echo(text, args[0], false), "Text written to file '%s'", args[0])
}

func (s *Shell) grep(name, pattern string) {
	lines, err := s.op.Grep(name, pattern)
	if err != nil {
		s.fail(err)
		return
	}
	if len(lines) == 0 {
		s.println("No matching lines found.")
		return
	}
	s.println("Matching lines:")
	for _, line := range lines {
		s.printf("  %s\n", line)
	}
}

func (s *Shell) find(pattern string) {
	paths, err := s.op.Find(pattern)
	if err != nil {
		s.fail(err)
		return
	}
	if len(paths) == 0 {
		s.println("No matching paths found.")
		return
	}
	for _, p := range paths {
		s.println(p)
	}
}

func (s *Shell) need(args []string, n int, msg string) bool {
	if len(args) < n {
		s.printf("Error: %s\n", msg)
		return false
	}
	return true
}

func (s *Shell) report(err error, format string, a ...any) {
	if err != nil {
		s.fail(err)
		return
	}
	s.printf(format+"\n", a...)
}

func (s *Shell) fail(err error) {
	s.printf("Error: %v\n", err)
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Shell) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
