package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// version is set at build time via -ldflags
var version = "dev"

// app carries what every subcommand writes to.
type app struct {
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"generate", "generate a synthetic file set with a DICOMDIR", runGenerate},
		{"dump", "print the attributes of a DICOM file", runDump},
		{"dir", "list, search and edit a DICOMDIR (ls, add, rm, purge, find)", runDir},
		{"lut", "compose the display LUT of an image and print sample mappings", runLUT},
		{"version", "print the version", runVersion},
	}
}

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, log: zerolog.Nop()}
	if err := a.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(args []string) error {
	if len(args) == 0 {
		a.usage(a.stderr)
		return errors.New("missing command")
	}
	name := args[0]
	switch name {
	case "help", "-h", "--help":
		a.usage(a.stdout)
		return nil
	case "--version":
		name = "version"
	}
	for _, c := range commands {
		if c.name == name {
			err := c.run(a, args[1:])
			if errors.Is(err, pflag.ErrHelp) {
				return nil
			}
			return err
		}
	}
	a.usage(a.stderr)
	return fmt.Errorf("unknown command %q", name)
}

func (a *app) usage(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("dicomkit"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Read, index and generate DICOM data.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dicomkit <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'dicomkit <command> --help' for the flags of a command.")
}

// flagSet returns a flag set with the flags shared by every command. The
// logger is switched on once the set is parsed with --verbose.
func (a *app) flagSet(name, usage string) (*pflag.FlagSet, *bool) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.SortFlags = false
	verbose := fs.BoolP("verbose", "v", false, "log debug events to stderr")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage:\n  dicomkit %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs, verbose
}

func (a *app) parse(fs *pflag.FlagSet, verbose *bool, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verbose {
		a.log = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	return nil
}

// wantArgs checks the positional argument count. hi < 0 means no limit.
func wantArgs(fs *pflag.FlagSet, lo, hi int) error {
	n := fs.NArg()
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}
	fs.Usage()
	switch {
	case n < lo:
		return fmt.Errorf("%s: missing arguments", fs.Name())
	default:
		return fmt.Errorf("%s: unexpected arguments: %s", fs.Name(), strings.Join(fs.Args()[hi:], " "))
	}
}

func runVersion(a *app, args []string) error {
	fs, verbose := a.flagSet("version", "")
	if err := a.parse(fs, verbose, args); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "dicomkit %s\n", version)
	return nil
}
