package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ottlabs/apptokens"
	"github.com/ottlabs/apptokens/pkg/privilege"
)

func init() {
	rootCmd.AddCommand(newCreateCommand())
}

func newCreateCommand() *cobra.Command {
	privileges := newPrivilegeFlags()

	var (
		description       string
		actions           []string
		sessionDuration   int
		sessionPrivileges []string
		startSession      bool
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new app token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLifecycleClient(cmd)
			if err != nil {
				return err
			}

			builder := apptokens.NewSpecBuilder(client.Codec()).Description(description)
			privileges.apply(cmd.Flags(), builder, false)

			if len(actions) > 0 {
				value, err := privilege.ActionURIs(actions)
				if err != nil {
					return err
				}
				builder.Privilege(privilege.NameURIRestrict, value)
			}

			for _, clause := range sessionPrivileges {
				name, value, err := client.Codec().ParseClause(clause)
				if err != nil {
					return err
				}
				builder.SessionPrivilege(name, value)
			}
			if cmd.Flags().Changed("session-duration") {
				builder.SessionDuration(sessionDuration)
			}

			spec, warnings, err := builder.BuildCreate()
			if err != nil {
				return err
			}
			for _, warning := range warnings {
				cmd.PrintErrf("warning: %s\n", warning)
			}

			token, err := client.Create(cmd.Context(), spec)
			if err != nil {
				return err
			}

			cmd.Printf("Created app token %s\n", token.ID)
			cmd.Printf("  Description: %s\n", token.Description)
			cmd.Printf("  Privileges:  %s\n", displayPrivileges(token.EncodedPrivileges))

			if !startSession {
				return nil
			}

			session, err := client.StartSession(cmd.Context(), token, spec)
			if err != nil {
				return err
			}
			cmd.Printf("Session started, valid until %s\n", session.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
			cmd.Printf("  KS: %s\n", session.KS)
			return nil
		},
	}

	privileges.register(createCmd.Flags())
	createCmd.Flags().StringVar(&description, "description", "", "Description for the app token. Required.")
	createCmd.Flags().StringSliceVar(&actions, "actions", nil, "Allowed service.action patterns, translated to urirestrict URIs. Wildcards allowed, e.g. media.*.")
	createCmd.Flags().IntVar(&sessionDuration, "session-duration", 0, "Lifetime in seconds of sessions started from the token. Platform default when omitted.")
	createCmd.Flags().StringArrayVar(&sessionPrivileges, "session-privilege", nil, "Extra name:value privilege clause for sessions started from the token. Repeatable.")
	createCmd.Flags().BoolVar(&startSession, "start-session", false, "Exchange the token for a session immediately after creation.")

	return createCmd
}

func displayPrivileges(encoded string) string {
	if encoded == "" {
		return "(platform defaults)"
	}
	return encoded
}
