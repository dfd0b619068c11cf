package function

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pyrestack/pyre/internal/di"
)

// NewListCommand creates the function list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := di.OpenRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			artifacts, err := rt.Store.List()
			if err != nil {
				return err
			}

			if len(artifacts) == 0 {
				fmt.Println("No functions stored")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLANGUAGE\tDEPENDENCIES\tUPDATED")
			for _, a := range artifacts {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					a.Name, a.Language, len(a.Dependencies), a.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}
