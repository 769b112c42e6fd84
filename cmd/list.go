package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ottlabs/apptokens"
)

const (
	listIDWidth          = 15
	listDescriptionWidth = 24
	listPrivilegesWidth  = 60
)

func init() {
	rootCmd.AddCommand(newListCommand())
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the partner's app tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newLifecycleClient(cmd)
			if err != nil {
				return err
			}

			it := client.List(cmd.Context())

			count := 0
			for it.Next() {
				if count == 0 {
					printListHeader(cmd)
				}
				printListRow(cmd, it.Token())
				count++
			}
			if err := it.Err(); err != nil {
				return err
			}

			if count == 0 {
				cmd.Println("No app tokens found.")
			}
			return nil
		},
	}
}

func printListHeader(cmd *cobra.Command) {
	cmd.Printf("%-*s | %-*s | %-8s | %s\n", listIDWidth, "Token ID", listDescriptionWidth, "Description", "Status", "Privileges")
	cmd.Println(strings.Repeat("-", listIDWidth+listDescriptionWidth+listPrivilegesWidth+14))
}

func printListRow(cmd *cobra.Command, token apptokens.AppToken) {
	lines := wrapText(displayPrivileges(token.EncodedPrivileges), listPrivilegesWidth)

	cmd.Printf("%-*s | %-*s | %-8s | %s\n",
		listIDWidth, token.ID,
		listDescriptionWidth, truncate(token.Description, listDescriptionWidth),
		statusLabel(token.Status),
		lines[0],
	)
	for _, line := range lines[1:] {
		cmd.Printf("%-*s | %-*s | %-8s | %s\n", listIDWidth, "", listDescriptionWidth, "", "", line)
	}
}

func statusLabel(status apptokens.TokenStatus) string {
	switch status {
	case apptokens.TokenStatusDisabled:
		return "disabled"
	case apptokens.TokenStatusActive:
		return "active"
	case apptokens.TokenStatusDeleted:
		return "deleted"
	}
	return fmt.Sprintf("(%d)", status)
}

// wrapText hard-wraps text at exactly width characters, counting runes so
// multibyte text is never split mid-character. Always returns at least one
// line so row rendering stays uniform.
func wrapText(text string, width int) []string {
	runes := []rune(text)
	if width <= 0 || len(runes) <= width {
		return []string{text}
	}

	var lines []string
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	return append(lines, string(runes))
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
