package cmd

import (
	_ "decoyd/cmd/root"
	_ "decoyd/cmd/run"
	_ "decoyd/cmd/templates"
)
