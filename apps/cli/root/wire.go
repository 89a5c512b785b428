package root

import (
	"github.com/monynha/botecopro/apps/cli/cmd/bootstrap"
	spacecmd "github.com/monynha/botecopro/apps/cli/cmd/space"
	usercmd "github.com/monynha/botecopro/apps/cli/cmd/user"
)

func init() {
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(spacecmd.Command())
	Root().AddCommand(usercmd.Command())
}
