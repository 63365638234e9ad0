// Command luabundle resolves import/export surface syntax across a module
// graph and emits a single, flat, runtime-loader-free source file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"luabundle/internal/config"
	"luabundle/internal/exitcode"
	"luabundle/internal/logger"
	"luabundle/internal/mangle"

	"luabundle/internal/bundler"
)

var (
	flagOutput     string
	flagMinify     bool
	flagMangle     string
	flagAutomangle bool
	flagDefines    []string
)

var rootCmd = &cobra.Command{
	Use:   "luabundle [entry points...]",
	Short: "Flatten import/export module graphs into a single loader-free file",
	Long: `luabundle resolves a tree of import/export declarations into one
base-language source file with no runtime module loader, renaming
identifiers only as needed to avoid collisions.`,
	RunE: runBundle,
}

func init() {
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (single entry point) or output directory (multiple)")
	rootCmd.Flags().BoolVar(&flagMinify, "minify", false, "minify the bundled output")
	rootCmd.Flags().StringVar(&flagMangle, "mangle", "", "identifier mangling mode: none, mangle, auto")
	rootCmd.Flags().BoolVar(&flagAutomangle, "automangle", false, "shorthand for --mangle=auto")
	rootCmd.Flags().StringArrayVarP(&flagDefines, "define", "d", nil, "substitute NAME with VALUE while parsing (repeatable)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitcode.Exit(err)
	}
}

func runBundle(cmd *cobra.Command, args []string) error {
	define, err := parseDefines(flagDefines)
	if err != nil {
		return err
	}

	mode, err := resolveMangleMode()
	if err != nil {
		return err
	}

	entries := args
	if len(entries) == 0 {
		path, ok, err := config.FindManifest(".")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no entry points given and no luabundle.toml found")
		}
		manifest, err := config.LoadManifest(path)
		if err != nil {
			return err
		}
		opts, err := manifest.ToOptions()
		if err != nil {
			return err
		}
		if flagOutput == "" {
			flagOutput = opts.OutputPath
		}
		entries = []string{opts.EntryPath}
		flagMinify = flagMinify || opts.Minify
		if mode == mangle.ModeNone {
			mode = opts.Mangle
		}
		for k, v := range opts.Define {
			if _, exists := define[k]; !exists {
				define[k] = v
			}
		}
	}

	if len(entries) == 1 {
		out, err := bundleOne(entries[0], define, mode)
		if err != nil {
			logger.Print(os.Stderr, diagnosticFor(err))
			return err
		}
		return writeOutput(flagOutput, out)
	}

	if flagOutput == "" {
		return fmt.Errorf("--output must name a directory when bundling multiple entry points")
	}
	return bundleMany(entries, define, mode, flagOutput)
}

func resolveMangleMode() (mangle.Mode, error) {
	if flagAutomangle {
		return mangle.ModeAuto, nil
	}
	return mangle.ParseMode(flagMangle)
}

func parseDefines(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed -d flag %q: want NAME=VALUE", kv)
		}
		out[kv[:eq]] = kv[eq+1:]
	}
	return out, nil
}

func bundleOne(entry string, define map[string]string, mode mangle.Mode) (string, error) {
	opts := config.Options{
		EntryPath: entry,
		Minify:    flagMinify,
		Mangle:    mode,
		Define:    define,
	}
	return bundler.Bundle(opts)
}

// bundleMany bundles independent entry points concurrently: nothing
// requires cross-entry ordering, and each Bundle call already runs its own
// isolated resolve/link/print pipeline, so fanning them out across
// goroutines is a straightforward win for a multi-entry project.
func bundleMany(entries []string, define map[string]string, mode mangle.Mode, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			out, err := bundleOne(entry, define, mode)
			if err != nil {
				logger.Print(os.Stderr, diagnosticFor(err))
				return err
			}
			dest := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry))+".lua")
			return os.WriteFile(dest, []byte(out), 0o644)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

func writeOutput(path, content string) error {
	if path == "" {
		fmt.Print(content)
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	return nil
}

func diagnosticFor(err error) logger.Msg {
	return logger.Msg{Kind: logger.Error, Text: err.Error()}
}
