package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"partnerguide/config"
	"partnerguide/internal/guide"
	srv "partnerguide/internal/server"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{Use: "partnerguide"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the guide generation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return srv.Serve(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	var req guide.SearchRequest
	var generate = &cobra.Command{
		Use:   "generate",
		Short: "Generate one partner guide and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			orch, _, err := srv.BuildPipeline(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := orch.Run(ctx, req, progressSink{})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	generate.Flags().StringVar(&req.ClientName, "client", "", "client business name")
	generate.Flags().StringVar(&req.ClientDescription, "activity", "", "client activity description")
	generate.Flags().StringVar(&req.Address, "address", "", "search center address")
	generate.Flags().IntVar(&req.TargetCount, "count", 10, "target number of partners")
	generate.Flags().Float64Var(&req.RadiusKm, "radius", 5, "initial search radius in km")
	generate.Flags().StringSliceVar(&req.ExcludeCategories, "exclude", nil, "categories to exclude")
	generate.Flags().StringVar(&req.Feedback, "feedback", "", "strategy guidance")
	_ = generate.MarkFlagRequired("client")
	_ = generate.MarkFlagRequired("address")

	root.AddCommand(serve, generate)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// progressSink logs run events to stderr for the one-shot command.
type progressSink struct{}

func (progressSink) OnProgress(ev guide.ProgressEvent) {
	log.Printf("[%3.0f%%] %s", ev.Percentage, ev.Message)
}

func (progressSink) OnPartner(p guide.PartnerRecord) {
	log.Printf("partner: %s (%s)", p.Name, p.Category)
}
