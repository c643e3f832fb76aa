package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wagernotify/cmd"
	"wagernotify/database"
	"wagernotify/events"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.WithError(err).Fatal("Migration failed")
			}
			return
		case "publish":
			if err := handlePublishCommand(ctx); err != nil {
				log.WithError(err).Fatal("Publish failed")
			}
			return
		}
	}

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: wagernotify migrate [up|down|status] [args...]")
	}

	switch command := os.Args[2]; command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handlePublishCommand(ctx context.Context) error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: wagernotify publish <kind> <file|->")
	}
	return cmd.Publish(ctx, events.MutationKind(os.Args[2]), os.Args[3])
}
