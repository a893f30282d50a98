package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mikey/phish-detect/internal/app"
	"github.com/mikey/phish-detect/internal/config"
	"github.com/mikey/phish-detect/internal/di"
	"github.com/mikey/phish-detect/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseScanFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(2)
	}
	if flags.InputFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: phish-scan --file page.html [--out annotated.html] [--backend URL] [--blocklist a@b.c,...]")
		os.Exit(2)
	}

	container, err := di.BuildScanContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		cfg *config.Config,
		application *app.App,
		host ports.Host,
	) error {
		return scan(logger, cfg, application, host, flags)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		os.Exit(1)
	}
}

func scan(logger *zap.Logger, cfg *config.Config, application *app.App, host ports.Host, flags *di.ScanFlags) error {
	defer logger.Sync()

	startTime := time.Now()
	if err := application.Start(context.Background()); err != nil {
		return err
	}
	application.Wait()
	duration := time.Since(startTime)

	if flags.OutputFile != "" {
		writer, ok := host.(interface{ WriteFile(path string) error })
		if !ok {
			return fmt.Errorf("host cannot write pages")
		}
		if err := writer.WriteFile(flags.OutputFile); err != nil {
			return err
		}
	}

	summary := application.Summary()

	// Print results
	fmt.Printf("\n=== Scan ===\n")
	fmt.Printf("Page: %s\n", flags.InputFile)
	fmt.Printf("Classification service: %s\n", cfg.GetString("classifier.backend_url"))
	fmt.Printf("Messages: %d\n", len(summary))

	for i, s := range summary {
		fmt.Printf("\n=== Message %d ===\n", i+1)
		fmt.Printf("Sender: %s\n", s.SenderEmail)
		fmt.Printf("Subject: %s\n", s.Subject)
		if len(s.Banners) == 0 {
			fmt.Printf("Result: not annotated (classification failed)\n")
			continue
		}
		fmt.Printf("Result: %s\n", strings.Join(s.Banners, " | "))
	}
	fmt.Printf("\nProcessing time: %v\n", duration)

	return application.Stop()
}
