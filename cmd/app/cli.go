package main

import (
	"fmt"
	"os"
	"time"

	"github.com/DRSN-tech/med-caption/internal/app"
	"github.com/DRSN-tech/med-caption/internal/client"
	config "github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/spf13/cobra"
)

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "app",
		Short:         "Medical image captioning service",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: ServeHandler,
	}

	rootCmd.AddCommand(newServeCmd(), newCaptionCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  ServeHandler,
	}
}

func newCaptionCmd() *cobra.Command {
	captionCmd := &cobra.Command{
		Use:   "caption FILE",
		Short: "Upload an image to a running server and print its descriptions",
		Args:  cobra.ExactArgs(1),
		RunE:  CaptionHandler,
	}

	captionCmd.Flags().String("url", client.DefaultURL, "Caption endpoint URL")
	captionCmd.Flags().Duration("timeout", 3*time.Minute, "Request timeout")
	return captionCmd
}

func ServeHandler(cmd *cobra.Command, _ []string) error {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		return err
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		return err
	}

	return application.Run()
}

func CaptionHandler(cmd *cobra.Command, args []string) error {
	url, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	res, err := client.New(url, timeout).Caption(cmd.Context(), args[0], data)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}

	client.Render(cmd.OutOrStdout(), res)
	return nil
}
