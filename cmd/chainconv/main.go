// Command chainconv is a small demonstration CLI: it wires the three
// built-in handlers into a Router and converts one file, printing the
// chain the router found.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/skryldev/chainconv"
	"github.com/skryldev/chainconv/config"
	"github.com/skryldev/chainconv/core"
	"github.com/skryldev/chainconv/handlers/image"
	"github.com/skryldev/chainconv/handlers/renamer"
	"github.com/skryldev/chainconv/handlers/vipsimage"
	"github.com/skryldev/chainconv/progress"
)

func main() {
	if len(os.Args) < 4 {
		log.Fatalf("usage: %s <input-file> <input-mime> <output-mime>", os.Args[0])
	}
	inputPath, inputMIME, outputMIME := os.Args[1], os.Args[2], os.Args[3]

	raw, err := os.ReadFile(inputPath)
	mustNoErr(err)

	cfg := config.Default()
	cfg.WorkerCount = 4
	cfg.QueueSize = 128
	cfg.JobTimeout = 30 * time.Second

	logger := progress.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	vipsHandler := vipsimage.New(vipsimage.Config{DefaultQuality: 85, MaxWorkers: cfg.WorkerCount})
	defer vipsHandler.Shutdown()

	ctx := context.Background()
	router, err := chainconv.New(ctx, cfg, []core.Handler{
		image.New(85),
		vipsHandler,
		renamer.New(),
	}, logger)
	mustNoErr(err)

	router.Start()
	defer router.Stop()

	result, err := router.Convert(ctx, chainconv.ConvertRequest{
		Files:      []core.FileData{{Name: inputPath, Bytes: raw}},
		InputMIME:  inputMIME,
		OutputMIME: outputMIME,
	})
	mustNoErr(err)

	fmt.Printf("status=%v hops=%d\n", result.Status, len(result.Chain)-1)
	for i, node := range result.Chain {
		fmt.Printf("  [%d] %s / %s\n", i, node.Handler.Name(), node.Format.Code)
	}
	for _, f := range result.Files {
		out := f.Name
		mustNoErr(os.WriteFile(out, f.Bytes, 0o644))
		fmt.Printf("wrote %s (%d bytes)\n", out, len(f.Bytes))
	}
}

func mustNoErr(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}
