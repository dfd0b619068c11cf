package function

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
	"github.com/pyrestack/pyre/pkg/deps"
	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
)

// NewAddCommand creates the function add command.
func NewAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add [name] [file]",
		Short: "Upload a function source file",
		Long: `Upload a function source file.

The extension selects the language variant: .js is stored as-is, .ts
is compiled with the TypeScript toolchain before the upload is
accepted. Dependencies are extracted from an @dependencies manifest
comment or inferred from import/require call sites, then installed
into an isolated per-function directory. A failed dependency install
does not reject the upload; the error detail is reported.`,
		Example: `  # Upload a JavaScript function
  pyre function add greet ./greet.js

  # Upload a TypeScript function (compiled on upload)
  pyre function add report ./report.ts`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]

			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			artifact, err := rt.Store.Add(name, src, filepath.Ext(path))
			if err != nil {
				var de *pyreerrors.DomainError
				if errors.As(err, &de) && de.Detail != "" {
					return fmt.Errorf("%w\n%s", err, de.Detail)
				}
				return err
			}

			manifest := deps.Extract(string(src))
			if err := rt.Store.SetDependencies(name, manifest); err != nil {
				return err
			}

			fmt.Printf("Function %s stored (%s)\n", artifact.Name, artifact.Language)

			if len(manifest) > 0 {
				fmt.Printf("Installing %d dependencies...\n", len(manifest))
				if _, err := rt.Installer.Install(context.Background(), name, manifest); err != nil {
					// Non-fatal: the upload stands, the function may
					// still run without its dependencies.
					fmt.Fprintf(os.Stderr, "Warning: dependency install failed: %v\n", err)
				}
			}
			return nil
		},
	}
}
