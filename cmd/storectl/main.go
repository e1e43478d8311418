// Command storectl runs operator tasks against the storefront database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"storefront-service/internal/catalog"
	"storefront-service/internal/discount"
	"storefront-service/internal/model"
	"storefront-service/internal/users"
	"storefront-service/pkg/config"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage: storectl <command> [flags]

commands:
  migrate           create or update the schema
  seed              insert demo categories and products
  create-admin      create or promote an admin (-email, -password)
  discounts         list discount codes
  create-discount   create a discount code (-code, -percent, -max-uses, -days)
`

// errUsage reports an unknown command or missing arguments.
var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	appConfig, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	// InitDB migrates, so every command runs against an up to date schema
	db, err := database.InitDB(appConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	cmd := os.Args[1]
	if err := run(context.Background(), db, os.Stdout, cmd, os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatal("Command failed", zap.String("command", cmd), zap.Error(err))
	}
}

// run dispatches one storectl command and writes its report to out.
func run(ctx context.Context, db *gorm.DB, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "migrate":
		fmt.Fprintln(out, "schema is up to date")
		return nil
	case "seed":
		return seed(ctx, catalog.NewService(db))
	case "create-admin":
		return createAdmin(ctx, db, out, args)
	case "discounts":
		return listDiscounts(ctx, discount.NewService(db), out)
	case "create-discount":
		return createDiscount(ctx, discount.NewService(db), out, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func createAdmin(ctx context.Context, db *gorm.DB, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password (min 8 characters)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	user, err := users.NewService(db).CreateAdmin(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "admin %s ready (id %d)\n", user.Email, user.ID)
	return nil
}

func createDiscount(ctx context.Context, svc *discount.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("create-discount", flag.ContinueOnError)
	fs.SetOutput(out)
	code := fs.String("code", "", "discount code")
	percent := fs.Int("percent", 0, "percentage off (1-100)")
	maxUses := fs.Int("max-uses", 0, "usage cap, 0 for unlimited")
	days := fs.Int("days", 0, "days until expiry, 0 for no expiry")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	in := discount.CreateInput{Code: *code, Percentage: *percent}
	if *maxUses > 0 {
		in.MaxUses = maxUses
	}
	if *days > 0 {
		exp := time.Now().AddDate(0, 0, *days)
		in.ExpiresAt = &exp
	}
	dc, err := svc.Create(ctx, in, model.SourceAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s (%d%%)\n", dc.Code, dc.Percentage)
	return nil
}

func listDiscounts(ctx context.Context, svc *discount.Service, out io.Writer) error {
	codes, err := svc.List(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.Header("Code", "Percent", "Active", "Uses", "Expires", "Source")
	for _, dc := range codes {
		uses := strconv.Itoa(dc.CurrentUses)
		if dc.MaxUses != nil {
			uses += "/" + strconv.Itoa(*dc.MaxUses)
		}
		expires := "-"
		if dc.ExpiresAt != nil {
			expires = dc.ExpiresAt.Format("2006-01-02")
		}
		if err := table.Append([]string{
			dc.Code,
			strconv.Itoa(dc.Percentage) + "%",
			strconv.FormatBool(dc.Active),
			uses,
			expires,
			string(dc.Source),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
