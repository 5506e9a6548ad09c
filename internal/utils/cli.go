package utils

import (
	"flag"
)

// CLIInputs holds the flags shared by the kvs binaries.
type CLIInputs struct {
	ConfigPath    string
	DirectoryPath string
	Version       bool
}

// HandleCLIInputs registers and parses the common flags. Positional
// arguments remain available through flag.Args.
func HandleCLIInputs() *CLIInputs {
	in := &CLIInputs{}

	flag.StringVar(&in.ConfigPath, "config", "", "Path to a YAML config file (default: kvs.yaml or configs/kvs.yaml if present)")
	flag.StringVar(&in.DirectoryPath, "dir", "", "Directory holding the segment files (overrides the config file)")
	flag.BoolVar(&in.Version, "V", false, "Print version information and exit")
	flag.Parse()

	return in
}
