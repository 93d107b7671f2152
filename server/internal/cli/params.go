package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/painless-params/painless/server/internal/logging"
	"github.com/painless-params/painless/server/internal/store"
)

// exitNotFound is returned by get and rm for a missing parameter.
const exitNotFound = 3

func newListCommand(o *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all parameters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := store.New(o.cfg.Server.BaseDir).List()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(params)
			}

			for _, p := range params {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", p.Name, p.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output parameters as JSON")

	return cmd
}

func newGetCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Print the value of one parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.New(o.cfg.Server.BaseDir).Get(args[0])
			if err != nil {
				return storeExit(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.Value)
			return err
		},
	}
}

func newSetCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Create or overwrite a parameter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(o.cfg.Server.BaseDir)
			if err := st.EnsureDir(); err != nil {
				return err
			}
			if err := st.Set(args[0], args[1]); err != nil {
				return storeExit(err)
			}
			logging.FromContext(cmd.Context()).Info("parameter set", "parameter", args[0], "value", args[1])
			return nil
		},
	}
}

func newRemoveCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Delete a parameter",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.New(o.cfg.Server.BaseDir).Remove(args[0]); err != nil {
				return storeExit(err)
			}
			logging.FromContext(cmd.Context()).Info("parameter removed", "parameter", args[0])
			return nil
		},
	}
}

// storeExit maps store sentinel errors to exit codes.
func storeExit(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &ExitError{Code: exitNotFound, Err: err}
	case errors.Is(err, store.ErrInvalidName):
		return &ExitError{Code: 2, Err: err}
	}
	return err
}
