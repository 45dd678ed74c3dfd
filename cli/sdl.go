package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autogql/autogql/schema"
)

func newSDLCmd(app App) *cobra.Command {
	var withSubscriptions bool
	cmd := &cobra.Command{
		Use:   "sdl",
		Short: "Print the derived schema as SDL",
		RunE: func(cmd *cobra.Command, args []string) error {
			sdl, err := schema.RenderSDL(app.Entities, withSubscriptions)
			if err != nil {
				return wrapError("sdl: render schema", err,
					"Fix the entity metadata and re-run.", 1)
			}
			fmt.Fprint(cmd.OutOrStdout(), sdl)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSubscriptions, "subscriptions", false, "Include the subscription root")
	return cmd
}
