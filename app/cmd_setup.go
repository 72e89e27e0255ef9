package app

import (
	"context"
	"fmt"
	"io"

	"github.com/JiscSD/earthquake-datastore-updater/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const setupReport = `
Dataset and DataStore resource successfully created with %d records.
Please add the resource id to the [main] section of your configuration file:

resource_id = "%s"
`

func NewCmdSetup(out io.Writer, logger logrus.FieldLogger, config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the dataset and the DataStore table",
		Long: `Creates a dataset in the remote CKAN instance, adds a DataStore resource to it
and pushes a first dump of the earthquakes that happened during the past day.

It prints the resource id that must be written in the configuration file before
running the update command. Running setup again creates a new dataset.

Logs and errors are written to the standard error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doSetup(out, logger, config)
		},
	}
}

func doSetup(out io.Writer, logger logrus.FieldLogger, config *Config) error {
	return execute(logger, config, "setup", func(ctx context.Context, u *updater.Updater) error {
		result, err := u.Setup(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, setupReport, result.Records, result.ResourceID)
		return err
	})
}
