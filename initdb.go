package main

import (
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/cppla/blogapi/services"
)

func newInitDBCommand() *cobra.Command {
	flags := configFlags()
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create tables, default statuses and the admin account, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(flags[configFlag].GetString())
			if err != nil {
				return err
			}
			defer rt.close()
			if err := seed(ctx, rt, rt.service(services.Options{})); err != nil {
				return err
			}
			rt.log.Info("database initialized")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}
