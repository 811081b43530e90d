package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// shellCmd reads commands line by line and runs each through the root.
type shellCmd struct {
	*root
	fs  *flag.FlagSet
	in  io.Reader
	out io.Writer
}

func (s *shellCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseShellCmd(args []string, r *root) (*shellCmd, error) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	s := &shellCmd{root: r, fs: fs, in: os.Stdin, out: os.Stdout}
	fs.Usage = usageFunc(s)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: s}
	}
	return s, nil
}

func (s *shellCmd) Run() error {
	fmt.Fprintln(s.out, "Enter commands (type 'exit' to quit)")
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			continue
		}
		if err := s.root.Run(args); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return scanner.Err()
}
