// Command quickmap converts annotation documents to share URLs and back.
package main

import (
	"os"

	"github.com/woozymasta/quickmap/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Encode  encodeCommand  `command:"encode"  description:"Build a share URL from a document file"`
	Decode  decodeCommand  `command:"decode"  description:"Extract the document from a share URL"`
	Import  importCommand  `command:"import"  description:"Normalize a GeoJSON document, dropping features that can not be drawn"`
	Preview previewCommand `command:"preview" description:"Render a share URL as a WebP thumbnail"`
}

func main() {
	// missing .env is fine
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
