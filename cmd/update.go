package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ottlabs/apptokens"
	"github.com/ottlabs/apptokens/pkg/privilege"
)

func init() {
	rootCmd.AddCommand(newUpdateCommand())
}

func newUpdateCommand() *cobra.Command {
	privileges := newPrivilegeFlags()

	var (
		description string
		actions     []string
		appendLists bool
	)

	updateCmd := &cobra.Command{
		Use:   "update <token-id>",
		Short: "Patch an existing app token",
		Long:  "Applies the given flags as a patch: privileges merge over the token's current set and omitted fields are left untouched. With --append, list-valued privileges concatenate onto the token's current lists instead of replacing them. Concurrent updates race; the later write wins.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLifecycleClient(cmd)
			if err != nil {
				return err
			}

			builder := apptokens.NewSpecBuilder(client.Codec())
			if cmd.Flags().Changed("description") {
				builder.Description(description)
			}
			privileges.apply(cmd.Flags(), builder, appendLists)

			if len(actions) > 0 {
				value, err := privilege.ActionURIs(actions)
				if err != nil {
					return err
				}
				if appendLists {
					builder.AppendPrivilege(privilege.NameURIRestrict, value)
				} else {
					builder.Privilege(privilege.NameURIRestrict, value)
				}
			}

			delta, warnings, err := builder.BuildDelta()
			if err != nil {
				return err
			}
			for _, warning := range warnings {
				cmd.PrintErrf("warning: %s\n", warning)
			}

			token, err := client.Update(cmd.Context(), args[0], delta)
			if err != nil {
				return err
			}

			cmd.Printf("Updated app token %s\n", token.ID)
			cmd.Printf("  Description: %s\n", token.Description)
			cmd.Printf("  Privileges:  %s\n", displayPrivileges(token.EncodedPrivileges))
			return nil
		},
	}

	privileges.register(updateCmd.Flags())
	updateCmd.Flags().StringVar(&description, "description", "", "New description for the app token.")
	updateCmd.Flags().StringSliceVar(&actions, "actions", nil, "Allowed service.action patterns, translated to urirestrict URIs. Wildcards allowed, e.g. media.*.")
	updateCmd.Flags().BoolVarP(&appendLists, "append", "a", false, "Concatenate list-valued privileges onto the token's current lists instead of replacing them.")

	return updateCmd
}
