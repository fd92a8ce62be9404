package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mdpages/internal/version"
)

// VersionInfoCmd implements the 'version' command.
type VersionInfoCmd struct{}

func (v *VersionInfoCmd) Run(_ *Global, _ *CLI) error {
	fmt.Printf("mdpages %s\n", version.Version)
	fmt.Printf("  commit: %s\n", version.GitCommit)
	fmt.Printf("  built:  %s\n", version.BuildTime)
	return nil
}
