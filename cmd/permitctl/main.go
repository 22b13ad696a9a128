// Package main is the PermitPro operator CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/naciremadream81/permitpro-v1/internal/config"
	"github.com/naciremadream81/permitpro-v1/internal/database"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var errMemoryStore = errors.New("STORE_DRIVER=memory has nothing to persist; set postgres or mysql")

// demoContractors are licensed Florida trades used to populate a fresh registry.
var demoContractors = []service.ContractorInput{
	{Name: "Sunshine Builders Inc", LicenseNumber: "CGC1518412", Phone: "407-246-2221", Email: "office@sunshinebuilders.example", Address: "120 E Robinson St, Orlando, FL", Specialties: "General contracting, additions"},
	{Name: "Gulf Coast Roofing", LicenseNumber: "CCC1330977", Phone: "813-274-8211", Email: "estimates@gulfcoastroofing.example", Address: "4010 W Boy Scout Blvd, Tampa, FL", Specialties: "Re-roof, storm repair"},
	{Name: "Everglades Electric", LicenseNumber: "EC13008231", Phone: "305-375-5311", Email: "dispatch@evergladeselectric.example", Address: "200 S Biscayne Blvd, Miami, FL", Specialties: "Service upgrades, solar interconnect"},
	{Name: "Panhandle Plumbing Co", LicenseNumber: "CFC1429315", Phone: "850-891-0010", Email: "service@panhandleplumbing.example", Address: "300 S Adams St, Tallahassee, FL", Specialties: "Repipe, water heaters"},
	{Name: "Atlantic Pool & Spa", LicenseNumber: "CPC1458820", Phone: "904-630-2489", Email: "build@atlanticpool.example", Address: "117 W Duval St, Jacksonville, FL", Specialties: "Pools, screen enclosures"},
}

func main() {
	root := &cobra.Command{
		Use:           "permitctl",
		Short:         "PermitPro operator tasks",
		Long:          "permitctl migrates the PermitPro database and seeds users and contractors. It reads the same environment as the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(), seedAdminCmd(), seedContractorsCmd(), hashPasswordCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := openDatabase(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an Admin account unless the email is already registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			auth := service.NewAuthService(repository.NewUserRepository(db), nil, service.NewMemoryTokenStore())
			return seedAdmin(cmd.Context(), auth, email, password, name, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", os.Getenv("SEED_ADMIN_EMAIL"), "Admin email (default $SEED_ADMIN_EMAIL)")
	f.StringVar(&password, "password", os.Getenv("SEED_ADMIN_PASSWORD"), "Admin password (default $SEED_ADMIN_PASSWORD)")
	f.StringVar(&name, "name", "Administrator", "Display name")
	return cmd
}

func seedContractorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-contractors",
		Short: "Register the demo Florida contractors that are not yet present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			svc := service.NewContractorService(repository.NewContractorRepository(db))
			return seedContractors(cmd.Context(), svc, cmd.OutOrStdout())
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// openDatabase connects with the API's configuration and migrates the schema.
func openDatabase() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.StoreDriver == config.StoreMemory {
		return nil, errMemoryStore
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func seedAdmin(ctx context.Context, auth service.AuthService, email, password, name string, out io.Writer) error {
	created, err := auth.EnsureUser(ctx, email, password, name, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if created {
		fmt.Fprintf(out, "created admin %s\n", service.NormalizeEmail(email))
	} else {
		fmt.Fprintf(out, "admin %s already exists\n", service.NormalizeEmail(email))
	}
	return nil
}

// seedContractors registers every demo contractor whose license number is not
// already in the registry.
func seedContractors(ctx context.Context, svc service.ContractorService, out io.Writer) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	licensed := make(map[string]bool, len(existing))
	for _, c := range existing {
		licensed[c.LicenseNumber] = true
	}

	created := 0
	for _, input := range demoContractors {
		if licensed[input.LicenseNumber] {
			continue
		}
		if _, err := svc.Create(ctx, input); err != nil {
			return fmt.Errorf("failed to seed contractor %s: %w", input.Name, err)
		}
		created++
	}
	fmt.Fprintf(out, "seeded %d contractors (%d already present)\n", created, len(demoContractors)-created)
	return nil
}
