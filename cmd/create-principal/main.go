package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository/postgres"
)

func main() {
	role := flag.String("role", string(domain.RoleCustomer), "customer, rep or admin")
	tier := flag.String("tier", string(domain.DealerTierStandard), "dealer tier for customers")
	region := flag.String("region", "", "customer region")
	regions := flag.String("regions", "", "comma separated territory regions for a new rep")
	capacity := flag.Int("capacity", 0, "max open RFQs for a new rep, 0 for unlimited")
	email := flag.String("email", "", "rep contact email")
	flag.Usage = func() {
		fmt.Println("Usage: go run cmd/create-principal/main.go [flags] <name> <api-key>")
		fmt.Println("Example: go run cmd/create-principal/main.go -role rep -regions NE,SE -capacity 10 \"Dana Reyes\" \"dana-api-key-12345\"")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	name := flag.Arg(0)
	apiKey := flag.Arg(1)

	principal := &domain.Principal{
		Name:     name,
		Role:     domain.Role(*role),
		IsActive: true,
	}
	if !principal.Role.IsValid() {
		fmt.Fprintf(os.Stderr, "Unknown role %q\n", *role)
		os.Exit(1)
	}
	if principal.Role == domain.RoleCustomer {
		principal.DealerTier = domain.DealerTier(strings.ToUpper(*tier))
		principal.Region = *region
		if !principal.DealerTier.IsValid() {
			fmt.Fprintf(os.Stderr, "Unknown dealer tier %q\n", *tier)
			os.Exit(1)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Hash the API key
	apiKeyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}
	principal.APIKeyHash = string(apiKeyHash)

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	// A rep principal signs in as a new account rep record
	if principal.Role == domain.RoleRep {
		rep := &domain.AccountRep{
			Name:         name,
			ContactEmail: *email,
			IsActive:     true,
		}
		if *regions != "" {
			for _, r := range strings.Split(*regions, ",") {
				if r = strings.TrimSpace(r); r != "" {
					rep.TerritoryRegions = append(rep.TerritoryRegions, r)
				}
			}
		}
		if *capacity > 0 {
			rep.MaxRfqCapacity = capacity
		}
		if err := repos.AccountRep.Create(ctx, rep); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create account rep: %v\n", err)
			os.Exit(1)
		}
		repID := rep.ID
		principal.RepID = &repID
	}

	if err := repos.Principal.Create(ctx, principal); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create principal: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Principal created successfully\n\n")
	fmt.Printf("Principal ID: %s\n", principal.ID)
	fmt.Printf("Name: %s\n", principal.Name)
	fmt.Printf("Role: %s\n", principal.Role)
	if principal.Role == domain.RoleCustomer {
		fmt.Printf("Dealer Tier: %s\n", principal.DealerTier)
	}
	if principal.RepID != nil {
		fmt.Printf("Account Rep ID: %s\n", *principal.RepID)
	}
	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("\nIMPORTANT: Save this API key securely. It cannot be shown again.\n")
	fmt.Printf("\nUse this API key in the Authorization header:\n")
	fmt.Printf("Authorization: Bearer %s\n", apiKey)
}
