package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fenrir/internal/book"
	"fenrir/internal/config"
	"fenrir/internal/engine"
	"fenrir/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	envFile := flag.String("env", "", "Path to a .env file (default ./.env)")
	bookKind := flag.String("book", "", "Price index behind each book: ['avl', 'btree']")
	logLevel := flag.String("log-level", "", "Log level: ['debug', 'info', 'warn', 'error']")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Flags take precedence over the environment.
	if *bookKind != "" {
		cfg.Engine.BookKind = *bookKind
	}
	if *logLevel != "" {
		cfg.App.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Logger = logger

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the matching engine and hand it to its owning goroutine.
	eng := engine.New(
		engine.WithBooks(newBook(cfg.Engine.BookKind), newBook(cfg.Engine.BookKind)),
		engine.WithLogger(logger),
	)
	seq := engine.NewSequencer(eng, cfg.Engine.QueueSize, logger)

	log.Info().
		Str("name", cfg.App.Name).
		Str("book", cfg.Engine.BookKind).
		Msg("engine ready, type 'help' for commands")

	if err := newShell(seq, os.Stdout).Run(ctx, os.Stdin); err != nil {
		log.Error().Err(err).Msg("input loop stopped")
	}
	if err := seq.Stop(); err != nil {
		log.Error().Err(err).Msg("unable to stop sequencer")
	}
}

func newBook(kind string) book.Book {
	if kind == config.BookBTree {
		return book.NewBTreeBook()
	}
	return book.NewAVLBook()
}
