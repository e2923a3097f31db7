package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/novasamatech/nova-spektr-sub000/internal/config"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const FlagForce = "force"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString(FlagConfig)
			if len(args) == 1 {
				path = args[0]
			}
			force, _ := cmd.Flags().GetBool(FlagForce)

			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			if !force {
				flags |= os.O_EXCL
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if err != nil {
				return fmt.Errorf("create config: %w", err)
			}
			defer f.Close()
			if err := config.Write(f, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool(FlagForce, false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "types",
		Short:       "List the transaction types",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range transaction.Types() {
				fmt.Fprintf(w, "%s\t%s\n", t, transaction.Title(t))
			}
			return w.Flush()
		},
	}
}
