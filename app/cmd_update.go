package app

import (
	"context"

	"github.com/JiscSD/earthquake-datastore-updater/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewCmdUpdate(logger logrus.FieldLogger, config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Push the earthquakes of the past hour to the DataStore table",
		Long: `Requests the earthquakes of the past hour and upserts them into the DataStore
table. It needs the resource id returned by setup in the configuration file.

Run it periodically, e.g. every hour with a cron job.

Logs and errors are written to the standard error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doUpdate(logger, config)
		},
	}
}

func doUpdate(logger logrus.FieldLogger, config *Config) error {
	return execute(logger, config, "update", func(ctx context.Context, u *updater.Updater) error {
		_, err := u.Update(ctx)
		return err
	})
}
