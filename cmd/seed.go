/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"time"

	"github.com/productcatalog/apiserver/internal/db"
	"github.com/productcatalog/apiserver/internal/services"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var seedFlags struct {
	categories int
	products   int
	seed       uint64
}

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the catalog with demo categories and products",
	Long: `Creates demo categories first, then products assigned to random
existing categories. Usage:

	catalog seed --categories 5 --products 100
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		seed := seedFlags.seed
		if !cmd.Flags().Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}

		seeder := services.NewSeedService(
			store.NewCategoryRepository(dbConn),
			store.NewProductRepository(dbConn),
			seed,
		)
		result, err := seeder.Seed(cmd.Context(), seedFlags.categories, seedFlags.products)
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"categories": result.Categories,
			"products":   result.Products,
			"seed":       seed,
		}).Info("catalog seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedFlags.categories, "categories", 5, "number of categories to create")
	seedCmd.Flags().IntVar(&seedFlags.products, "products", 100, "number of products to create")
	seedCmd.Flags().Uint64Var(&seedFlags.seed, "seed", 0, "random seed for reproducible data")
}
