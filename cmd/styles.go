package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wattok061-tech/cinecomic/internal/config"
)

// stylesCmd は、利用できる画風の一覧を表示するのだ。
var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "利用できる画風の一覧を表示しますなのだ。",
	RunE:  stylesCommand,
}

func stylesCommand(cmd *cobra.Command, args []string) error {
	styles, err := config.LoadStyleCatalog()
	if err != nil {
		return err
	}

	for _, s := range styles {
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", s.ID, s.Label)
		fmt.Fprintf(cmd.OutOrStdout(), "             %s\n", s.Description)
	}
	return nil
}
