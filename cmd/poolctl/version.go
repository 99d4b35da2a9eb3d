package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/arena"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
// Empty values fall back to the module's embedded build info.
var (
	version string
	commit  string
	date    string
)

type buildDetails struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	Built      string `json:"built"`
	Module     string `json:"module"`
	GoVersion  string `json:"go_version"`
	HeaderSize int    `json:"header_size"`
	MaxArena   uint64 `json:"max_capacity"`
	Dirty      bool   `json:"dirty,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, _ := debug.ReadBuildInfo()
		return runVersion(resolveBuild(info))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveBuild merges linker-provided values with the VCS stamps the Go
// toolchain embeds. Linker values win.
func resolveBuild(info *debug.BuildInfo) buildDetails {
	d := buildDetails{
		Version:    "dev",
		Commit:     "none",
		Built:      "unknown",
		HeaderSize: arena.HeaderSize,
		MaxArena:   arena.MaxCapacity,
	}
	if info != nil {
		d.Module = info.Main.Path
		d.GoVersion = info.GoVersion
		if v := info.Main.Version; v != "" && v != "(devel)" {
			d.Version = v
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				d.Commit = s.Value
			case "vcs.time":
				d.Built = s.Value
			case "vcs.modified":
				d.Dirty = s.Value == "true"
			}
		}
	}
	if version != "" {
		d.Version = version
	}
	if commit != "" {
		d.Commit = commit
	}
	if date != "" {
		d.Built = date
	}
	return d
}

func runVersion(d buildDetails) error {
	if jsonOut {
		return printJSON(d)
	}
	rev := d.Commit
	if d.Dirty {
		rev += " (modified)"
	}
	printInfo("poolctl %s\n", d.Version)
	printInfo("  commit: %s\n", rev)
	printInfo("  built:  %s\n", d.Built)
	if d.Module != "" {
		printInfo("  module: %s (%s)\n", d.Module, d.GoVersion)
	}
	printInfo("  arena:  %d-byte headers, capacity up to %d bytes\n", d.HeaderSize, d.MaxArena)
	return nil
}
