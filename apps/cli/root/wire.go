package root

import (
	"github.com/skillsight-analytics/skillsight-saas/apps/cli/cmd/auth"
	"github.com/skillsight-analytics/skillsight-saas/apps/cli/cmd/bootstrap"
	"github.com/skillsight-analytics/skillsight-saas/apps/cli/cmd/export"
	"github.com/skillsight-analytics/skillsight-saas/apps/cli/cmd/seed"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(seed.Command())
	Root().AddCommand(export.Command())
}
