package cmd

import (
	"github.com/spf13/cobra"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

func init() {
	rootCmd.AddCommand(newDeleteCommand())
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token-id>",
		Short: "Delete an app token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLifecycleClient(cmd)
			if err != nil {
				return err
			}

			err = client.Delete(cmd.Context(), args[0])
			if oerrors.IsCode(err, oerrors.CodeNotFound) {
				// The token is gone either way; a repeat delete is not a
				// failure from the operator's point of view.
				cmd.Printf("App token %s does not exist (already deleted?)\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}

			cmd.Printf("Deleted app token %s\n", args[0])
			return nil
		},
	}
}
