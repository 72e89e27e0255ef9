package app

import (
	"context"
	"encoding/json"
	"io"
	"sort"

	"github.com/JiscSD/earthquake-datastore-updater/feed"
	"github.com/JiscSD/earthquake-datastore-updater/updater"

	"github.com/go-logfmt/logfmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	fetchWindow string
	fetchURL    string
	fetchFormat string
)

func NewCmdFetch(out io.Writer, logger logrus.FieldLogger, config *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print the records of a feed without sending them to CKAN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doFetch(out, logger, config)
		},
	}

	cmd.Flags().StringVarP(&fetchWindow, "window", "w", "hour", "Feed window (hour, day)")
	cmd.Flags().StringVarP(&fetchURL, "url", "u", "", "Feed location, overrides the window")
	cmd.Flags().StringVarP(&fetchFormat, "format", "f", "json", "Output format (json, logfmt)")

	return cmd
}

func doFetch(out io.Writer, logger logrus.FieldLogger, config *Config) error {
	location := fetchURL
	if location == "" {
		switch fetchWindow {
		case "hour":
			location = config.Feed.PastHourURL
		case "day":
			location = config.Feed.PastDayURL
		default:
			return errors.Errorf("unknown window %q", fetchWindow)
		}
	}

	var write func(io.Writer, []feed.Record) error
	switch fetchFormat {
	case "json":
		write = writeJSON
	case "logfmt":
		write = writeLogfmt
	default:
		return errors.Errorf("unknown format %q", fetchFormat)
	}

	return execute(logger, config, "fetch", func(ctx context.Context, u *updater.Updater) error {
		records, err := u.Fetch(ctx, location)
		if err != nil {
			return err
		}
		return write(out, records)
	})
}

// writeJSON writes one JSON object per line.
func writeJSON(w io.Writer, records []feed.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// writeLogfmt writes one logfmt line per record with the keys sorted.
func writeLogfmt(w io.Writer, records []feed.Record) error {
	enc := logfmt.NewEncoder(w)
	for _, r := range records {
		fields := r.Fields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := enc.EncodeKeyval(k, fields[k]); err != nil {
				return err
			}
		}
		if err := enc.EndRecord(); err != nil {
			return err
		}
	}
	return nil
}
