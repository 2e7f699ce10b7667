package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage recordings stored in Postgres",
	}

	var id string
	save := &cobra.Command{
		Use:   "save <recording>",
		Short: "Decode a recording and store it under db://<id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()

			b := newBackends(cfg, log)
			defer b.Close()

			rec, err := b.resolver().Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec.ID = id
			if rec.ID == "" {
				rec.ID = uuid.New().String()
			}
			if rec.Name == "" {
				rec.Name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			repo, err := b.repository(cmd.Context())
			if err != nil {
				return err
			}
			if err := repo.Save(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "db://%s\n", rec.ID)
			return nil
		},
	}
	save.Flags().StringVar(&id, "id", "", "recording id, defaults to a new UUID")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored recordings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()

			b := newBackends(cfg, log)
			defer b.Close()

			repo, err := b.repository(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFORMAT\tFS\tSAMPLES\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%d\t%s\n",
					info.ID, info.Name, info.Format, info.FS, info.SampleCount,
					info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows")

	cmd.AddCommand(save, list)
	return cmd
}
