package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage recordings in the Redis cache",
	}

	var id string
	put := &cobra.Command{
		Use:   "put <recording>",
		Short: "Decode a recording and store it under cache://<id>",
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
				rec.ID = strings.TrimSuffix(filepath.Base(rec.Name), filepath.Ext(rec.Name))
			}

			c, err := b.cache(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Put(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache://%s\n", rec.ID)
			return nil
		},
	}
	put.Flags().StringVar(&id, "id", "", "recording id, defaults to the file name without extension")

	del := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a cached recording",
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

			c, err := b.cache(cmd.Context())
			if err != nil {
				return err
			}
			return c.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(put, del)
	return cmd
}
