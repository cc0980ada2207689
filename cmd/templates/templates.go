package templates

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"decoyd/cmd/root"
	"decoyd/internal/config"
	"decoyd/internal/logger"
	"decoyd/internal/template"
)

var configFlag string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in templates",
	Long:  `Scans the templates root and prints each template's metadata (unit, vendor, description, protocols, creator)`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listTemplates(); err != nil {
			logger.Fatal(err)
		}
	},
}

/**
 * Render the metadata of every built-in template
 * @returns {error} Error if the templates root cannot be read
 * @description Read-only reporting path; fields a template does not
 * set are shown as "not available".
 */
func listTemplates() error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	metas, err := template.ListAll(cfg.Templates.Root)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Printf("no templates found under %s\n", cfg.Templates.Root)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUNIT\tVENDOR\tPROTOCOLS\tCREATOR\tDESCRIPTION")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Name, m.Unit, m.Vendor, m.Protocols, m.Creator, m.Description)
	}
	return w.Flush()
}

func init() {
	root.RootCmd.AddCommand(templatesCmd)

	templatesCmd.Flags().StringVarP(&configFlag, "config", "c", "", "runtime config file")
	templatesCmd.Example = `  decoyd templates`
}
