package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/bienesraices/internal/database"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
)

var seedCategories = []models.Category{
	{Name: "Casa"},
	{Name: "Departamento"},
	{Name: "Bodega"},
	{Name: "Terreno"},
	{Name: "Cabaña"},
}

var seedPrices = []models.Price{
	{Name: "0 - $10,000 USD"},
	{Name: "$10,000 - $30,000 USD"},
	{Name: "$30,000 - $50,000 USD"},
	{Name: "$50,000 - $75,000 USD"},
	{Name: "$75,000 - $100,000 USD"},
	{Name: "$100,000 - $150,000 USD"},
	{Name: "$150,000 - $200,000 USD"},
	{Name: "$200,000 - $300,000 USD"},
	{Name: "$300,000 - $500,000 USD"},
	{Name: "+ $500,000 USD"},
}

type seedUser struct {
	name  string
	email string
}

var seedUsers = []seedUser{
	{name: "Pedro", email: "pedro@gmail.com"},
	{name: "Juan", email: "juan@gmail.com"},
}

const seedPassword = "123456"

func newSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load or remove the reference data",
	}

	seedCmd.AddCommand(
		&cobra.Command{
			Use:   "import",
			Short: "Insert categories, price tiers and the demo users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger := bootstrap()
				if err := database.ConnectDatabase(cfg, logger); err != nil {
					return err
				}
				return importSeed(database.GetDatabase(), logger)
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Delete every seeded row and everything that depends on it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger := bootstrap()
				if err := database.ConnectDatabase(cfg, logger); err != nil {
					return err
				}
				return purgeSeed(database.GetDatabase(), logger)
			},
		},
	)

	return seedCmd
}

func importSeed(db *gorm.DB, logger *slog.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		catalog := repository.NewCatalogRepository(tx)
		users := repository.NewUserRepository(tx)

		// Copies so the package-level slices never receive generated IDs
		categories := append([]models.Category(nil), seedCategories...)
		prices := append([]models.Price(nil), seedPrices...)

		if err := catalog.SeedCategories(categories); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		if err := catalog.SeedPrices(prices); err != nil {
			return fmt.Errorf("failed to seed prices: %w", err)
		}
		for _, u := range seedUsers {
			user := &models.User{
				Name:      u.name,
				Email:     u.email,
				Password:  string(hash),
				Confirmed: true,
			}
			if err := users.Create(user); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.email, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("❌ [Seed] Import failed", "error", err)
		return err
	}

	logger.Info("✅ [Seed] Data imported",
		"categories", len(seedCategories),
		"prices", len(seedPrices),
		"users", len(seedUsers),
	)
	return nil
}

// purgeSeed clears the tables children first so foreign keys never block a delete
func purgeSeed(db *gorm.DB, logger *slog.Logger) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Message{},
			&models.Listing{},
			&models.User{},
			&models.Price{},
			&models.Category{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("❌ [Seed] Purge failed", "error", err)
		return err
	}

	logger.Info("✅ [Seed] Data removed")
	return nil
}
