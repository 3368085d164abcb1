package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	companyDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/company"
	ruleDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/rule"
	userDatamodel "github.com/approveflow/expense-service/internal/core/datamodel/user"
	"github.com/approveflow/expense-service/internal/rule"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo company, users and an approval rule for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"expenses", "approval_rules", "users", "companies"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		var existing userDatamodel.User
		if err := db.Where("email = ?", "admin@acme.test").First(&existing).Error; err == nil {
			fmt.Println("seed data already present; nothing to do")
			return
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		company := &companyDatamodel.Company{
			Name:            "Acme Corp",
			DefaultCurrency: "USD",
			Country:         "US",
		}
		if err := db.Create(company).Error; err != nil {
			log.Fatalf("failed to seed company: %v", err)
		}

		admin := &userDatamodel.User{
			CompanyID:    company.ID,
			Email:        "admin@acme.test",
			Name:         "Ada Admin",
			PasswordHash: string(hash),
			Role:         "admin",
		}
		if err := db.Create(admin).Error; err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}

		manager := &userDatamodel.User{
			CompanyID:         company.ID,
			Email:             "manager@acme.test",
			Name:              "Mei Manager",
			PasswordHash:      string(hash),
			Role:              "manager",
			IsManagerApprover: true,
		}
		if err := db.Create(manager).Error; err != nil {
			log.Fatalf("failed to seed manager: %v", err)
		}

		for _, e := range []struct{ email, name string }{
			{"eli@acme.test", "Eli Employee"},
			{"uma@acme.test", "Uma Employee"},
		} {
			u := &userDatamodel.User{
				CompanyID:    company.ID,
				Email:        e.email,
				Name:         e.name,
				PasswordHash: string(hash),
				Role:         "employee",
				ManagerID:    &manager.ID,
			}
			if err := db.Create(u).Error; err != nil {
				log.Fatalf("failed to seed employee %s: %v", e.email, err)
			}
		}

		threshold, _ := json.Marshal("1000")
		highValueRule := &ruleDatamodel.Rule{
			CompanyID: company.ID,
			Name:      "High value expenses",
			Operator:  rule.OperatorOr,
			Conditions: ruleDatamodel.Conditions{
				{Type: rule.ConditionAmountThreshold, Value: threshold},
			},
			Approvers: ruleDatamodel.Approvers{
				{UserID: manager.ID, Sequence: 1},
				{UserID: admin.ID, Sequence: 2},
			},
		}
		if err := db.Create(highValueRule).Error; err != nil {
			log.Fatalf("failed to seed approval rule: %v", err)
		}

		fmt.Println("Seeded demo company, users (password: password) and approval rule")
	},
}
