package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-local/internal/cardjson"
	"github.com/phrazzld/scry-local/internal/domain"
)

func newImportCmd(a *app) *cobra.Command {
	var appendCards bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace (or extend) the stored cards with cards from a JSON file",
		Long: `Import reads a JSON array of cards:

  [{"prompt": "...", "response": "...", "misses": 0, "hits": 0}, ...]

The whole file is validated before anything is written. Use "-" to read from
standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(a.stdin, args[0])
			if err != nil {
				return err
			}

			imported, err := cardjson.Import(data)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			set, tag, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			if appendCards {
				if err := set.Append(imported.Cards...); err != nil {
					return err
				}
			} else {
				set = imported
			}

			if _, err := a.store.Save(ctx, set, tag); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "imported %d cards (%d in store)\n", imported.Len(), set.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendCards, "append", false, "append to the stored cards instead of replacing them")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored cards as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, _, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			data, err := cardjson.Export(set)
			if err != nil {
				return err
			}
			return writeOutput(a.stdout, output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of standard output")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var prompt, response string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			card, err := domain.NewCard(prompt, response)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			set, tag, err := a.store.Load(ctx)
			if err != nil {
				return err
			}
			if err := set.Append(card); err != nil {
				return err
			}
			if _, err := a.store.Save(ctx, set, tag); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "added card %d\n", set.Len()-1)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "text shown first")
	cmd.Flags().StringVar(&response, "response", "", "text revealed on flip")
	_ = cmd.MarkFlagRequired("prompt")
	_ = cmd.MarkFlagRequired("response")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove INDEX",
		Short: "Remove the card at INDEX (as listed by stats)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}

			ctx := cmd.Context()
			set, tag, err := a.store.Load(ctx)
			if err != nil {
				return err
			}
			removed := domain.Card{}
			if index >= 0 && index < set.Len() {
				removed = set.Cards[index]
			}
			if err := set.Remove(index); err != nil {
				return err
			}
			if _, err := a.store.Save(ctx, set, tag); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "removed card %d: %s\n", index, removed.Prompt)
			return nil
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func writeOutput(stdout io.Writer, name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
