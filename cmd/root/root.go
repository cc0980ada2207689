package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "decoyd",
	Short: "Template-driven decoy service supervisor",
	Long:  `decoyd launches and supervises a fleet of emulated protocol services and man-in-the-middle proxies declared in XML templates`,
}
