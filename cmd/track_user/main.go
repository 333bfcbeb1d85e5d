package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/vitos/hyper_pnl/internal/domain"
	"github.com/vitos/hyper_pnl/internal/infrastructure/storage"
)

func main() {
	dbPath := flag.String("db", "hyper_pnl.db", "tracked-user database")
	label := flag.String("label", "", "display label for the user")
	remove := flag.Bool("remove", false, "stop tracking the address instead of adding it")
	list := flag.Bool("list", false, "print tracked users and exit")
	flag.Parse()

	// Connect to database
	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *list {
		users, err := store.ListTrackedUsers(ctx)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		for _, u := range users {
			fmt.Printf("%s\t%s\t%s\n", u.Address, time.UnixMilli(u.AddedAt).Format(time.RFC3339), u.Label)
		}
		fmt.Printf("%d tracked users\n", len(users))
		return
	}

	if flag.NArg() != 1 {
		log.Fatalf("usage: track_user [-db path] [-label name] [-remove] <address>")
	}
	address := flag.Arg(0)

	if *remove {
		if err := store.RemoveTrackedUser(ctx, address); err != nil {
			log.Fatalf("Failed to remove user: %v", err)
		}
		fmt.Printf("✅ Stopped tracking %s\n", address)
		return
	}

	user := domain.TrackedUser{Address: address, Label: *label}
	if err := store.AddTrackedUser(ctx, user); err != nil {
		log.Fatalf("Failed to add user: %v", err)
	}
	fmt.Printf("✅ Tracking %s\n", address)
	if *label != "" {
		fmt.Printf("Label: %s\n", *label)
	}
}
