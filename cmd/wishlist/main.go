package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piligrim/bookshelf/internal/storage"
	"github.com/piligrim/bookshelf/internal/wishlist"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "wishlist: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("wishlist", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		dbPath  = fs.String("db", "./cache/bookshelf.db", "SQLite database used by the server")
		visitor = fs.String("visitor", "", "Visitor id (the bookshelf_visitor cookie value)")
		file    = fs.String("file", "", "Use a JSON file instead of the database")
		older   = fs.Duration("older", 30*24*time.Hour, "Idle time after which purge removes a visitor")
		help    = fs.Bool("help", false, "Show help message")
	)
	fs.Usage = func() { showHelp(fs, out) }

	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *help || fs.NArg() == 0 {
		showHelp(fs, out)
		return nil
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	command := fs.Arg(0)

	var p wishlist.Persistence
	switch {
	case *file != "":
		if command == "purge" {
			return fmt.Errorf("purge needs -db")
		}
		p = wishlist.FilePersistence{Path: *file}
	default:
		db, err := storage.NewDatabase(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := storage.NewRepository(db)

		if command == "purge" {
			n, err := repo.PurgeIdle(time.Now().Add(-*older))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "purged %d visitors\n", n)
			return nil
		}
		if *visitor == "" {
			return fmt.Errorf("-visitor is required with -db")
		}
		p = storage.VisitorKV(repo, *visitor, "wishlist")
	}

	store := wishlist.Open(p, log)

	switch command {
	case "list":
	case "add", "remove", "toggle":
		if fs.NArg() < 2 {
			return fmt.Errorf("%s needs a book id", command)
		}
		id, err := strconv.Atoi(fs.Arg(1))
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid book id %q", fs.Arg(1))
		}
		switch command {
		case "add":
			err = store.Add(id)
		case "remove":
			err = store.Remove(id)
		default:
			var liked bool
			liked, err = store.Toggle(id)
			if err == nil {
				fmt.Fprintf(out, "%d liked: %t\n", id, liked)
			}
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	for _, id := range store.All() {
		fmt.Fprintln(out, id)
	}
	fmt.Fprintf(out, "count: %d\n", store.Count())
	return nil
}

func showHelp(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintln(out, "wishlist - inspect and edit stored wishlists")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  wishlist [flags] list|add|remove|toggle <id>|purge")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Changes made with -db show up in open browser sessions on their next page load.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintln(out, "  # Show a visitor's wishlist")
	fmt.Fprintln(out, "  wishlist -db ./cache/bookshelf.db -visitor 6f1c... list")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  # Like Frankenstein in a JSON file")
	fmt.Fprintln(out, "  wishlist -file ./wishlist.json add 84")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  # Forget visitors idle for 90 days")
	fmt.Fprintln(out, "  wishlist -db ./cache/bookshelf.db -older 2160h purge")
}
