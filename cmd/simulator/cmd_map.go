package main

import (
	"errors"
	"fmt"
	"os"

	"gopr-simulator/internal/db"
	"gopr-simulator/internal/mapdata"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Manage the training-area map",
	}
	cmd.AddCommand(newMapInitCmd(), newMapPushCmd())
	return cmd
}

func newMapInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in sample map to MAP_FILE",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.MapFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfg.MapFile)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := mapdata.Save(cfg.MapFile, mapdata.Sample()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample map to %s\n", cfg.MapFile)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing map file")
	return cmd
}

func newMapPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Store MAP_FILE in Postgres, replacing a map of the same name",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			m, err := mapdata.Load(cfg.MapFile)
			if err != nil {
				return fmt.Errorf("load map: %w", err)
			}
			sqlDB, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := db.SaveMap(cmd.Context(), sqlDB, m); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"map": m.Name, "trails": len(m.Trails)}).Info("map stored")
			return nil
		},
	}
}
