package app

import (
	"context"
	"fmt"
	"io"

	"github.com/JiscSD/earthquake-datastore-updater/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewCmdStatus(out io.Writer, logger logrus.FieldLogger, config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the number of rows stored in the DataStore table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doStatus(out, logger, config)
		},
	}
}

func doStatus(out io.Writer, logger logrus.FieldLogger, config *Config) error {
	return execute(logger, config, "status", func(ctx context.Context, u *updater.Updater) error {
		total, err := u.Status(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "resource_id=%s rows=%d\n", config.Main.ResourceID, total)
		return err
	})
}
