package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Supported subcommands:
// - migrate:         Create or update the identity tables
// - bootstrap-admin: Create the first super-admin
// - sweep:           Run one maintenance pass

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)

	bootstrapCmd := flag.NewFlagSet("bootstrap-admin", flag.ExitOnError)
	bootstrapEmail := bootstrapCmd.String("email", "", "Super-admin email")
	bootstrapName := bootstrapCmd.String("name", "Super Admin", "Super-admin full name")
	bootstrapPassword := bootstrapCmd.String("password", "", "Initial password (falls back to BOOTSTRAP_ADMIN_PASSWORD)")

	sweepCmd := flag.NewFlagSet("sweep", flag.ExitOnError)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flags := ctlFlags{
		Migrate: migrateCmd,
		Bootstrap: bootstrapFlags{
			cmd:      bootstrapCmd,
			email:    bootstrapEmail,
			name:     bootstrapName,
			password: bootstrapPassword,
		},
		Sweep: sweepCmd,
	}

	if err := runSubcommand(ctx, &flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type ctlFlags struct {
	Migrate   *flag.FlagSet
	Bootstrap bootstrapFlags
	Sweep     *flag.FlagSet
}

type bootstrapFlags struct {
	cmd      *flag.FlagSet
	email    *string
	name     *string
	password *string
}

func runSubcommand(ctx context.Context, flags *ctlFlags) error {
	switch os.Args[1] {
	case "migrate":
		return handleMigrate(ctx, flags)
	case "bootstrap-admin":
		return handleBootstrap(ctx, flags)
	case "sweep":
		return handleSweep(ctx, flags)
	default:
		printUsage()

		return errors.New("unknown subcommand")
	}
}

func handleMigrate(ctx context.Context, flags *ctlFlags) error {
	if err := flags.Migrate.Parse(os.Args[2:]); err != nil {
		return errors.Wrap(err, "failed to parse migrate flags")
	}

	return runMigrate(ctx)
}

func handleBootstrap(ctx context.Context, flags *ctlFlags) error {
	if err := flags.Bootstrap.cmd.Parse(os.Args[2:]); err != nil {
		return errors.Wrap(err, "failed to parse bootstrap-admin flags")
	}

	if *flags.Bootstrap.email == "" {
		return errors.New("--email flag is required for bootstrap-admin command")
	}
	password := *flags.Bootstrap.password
	if password == "" {
		password = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("--password flag or BOOTSTRAP_ADMIN_PASSWORD is required")
	}

	return runBootstrap(ctx, *flags.Bootstrap.name, *flags.Bootstrap.email, password)
}

func handleSweep(ctx context.Context, flags *ctlFlags) error {
	if err := flags.Sweep.Parse(os.Args[2:]); err != nil {
		return errors.Wrap(err, "failed to parse sweep flags")
	}

	return runSweep(ctx)
}

func printUsage() {
	fmt.Println("Usage: identityctl <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  migrate            Create or update the identity tables")
	fmt.Println("  bootstrap-admin    Create the first super-admin")
	fmt.Println("  sweep              Delete dead sessions and abandoned registrations once")
	fmt.Println("")
	fmt.Println("Use 'identityctl <command> -h' for more information about a command.")
}
