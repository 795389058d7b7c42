package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pangraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and remove companion cache files",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [file.gfa...]",
		Short: "Remove the cache files of GFA sources",
		Long: `Remove the companion files of the given GFA sources so the next load
reparses them. With --all, empty the shared cache directory instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd.OutOrStdout())
			if all {
				return clearSharedCache(out)
			}
			if len(args) == 0 {
				return errors.New("name at least one GFA file, or pass --all")
			}
			removed := 0
			for _, source := range args {
				n, err := c.clearSource(cmd.Context(), out, source)
				if err != nil {
					return err
				}
				removed += n
			}
			out.success("Removed %d cache files", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "empty the shared cache directory")

	return cmd
}

// clearSource removes the companion files of source and its shared cache
// entry, returning the number of files removed.
func (c *CLI) clearSource(ctx context.Context, out printer, source string) (int, error) {
	count := 0
	for _, path := range cache.Paths(source).All() {
		err := os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return count, fmt.Errorf("remove %s: %w", path, err)
		}
		out.detail("Removed %s", path)
		count++
	}

	dir, err := cacheDir()
	if err != nil {
		return count, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return count, nil
	}
	shared, err := cache.NewFileCache(dir)
	if err != nil {
		return count, nil
	}
	if err := shared.Delete(ctx, source); err != nil {
		return count, fmt.Errorf("remove shared cache entry: %w", err)
	}
	return count, nil
}

func clearSharedCache(out printer) error {
	dir, err := cacheDir()
	if err != nil {
		return fmt.Errorf("get cache dir: %w", err)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		out.info("Cache is empty")
		return nil
	}

	count := 0
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if path == dir {
			return nil
		}
		if !info.IsDir() {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Clean up empty subdirectories
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if info.IsDir() {
			os.Remove(path)
		}
		return nil
	})

	out.success("Cleared %d cached graphs", count)
	out.detail("Directory: %s", dir)
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path [file.gfa]",
		Short: "Print the cache files of a source, or the shared cache directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				dir, err := cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				fmt.Fprintln(out, dir)
				return nil
			}
			for _, path := range cache.Paths(args[0]).All() {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
}
