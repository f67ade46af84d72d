/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/productcatalog/apiserver/internal/db"
	"github.com/productcatalog/apiserver/internal/services"
	"github.com/productcatalog/apiserver/internal/storage"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a JSON snapshot of the catalog to object storage",
	Long: `Writes every category and product to a timestamped JSON object in
the bucket configured by STORAGE_BACKEND. Usage:

	catalog export
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		objects, err := storage.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := storage.Close(objects); err != nil {
				log.WithError(err).Warn("failed to close object storage")
			}
		}()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		exporter := services.NewExportService(
			store.NewCategoryRepository(dbConn),
			store.NewProductRepository(dbConn),
			objects,
			cfg.ExportPrefix,
		)
		key, err := exporter.Export(cmd.Context())
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"bucket": objects.Bucket(),
			"key":    key,
		}).Info("catalog exported")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
