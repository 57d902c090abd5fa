/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adminpanel",
	Short: "User, role and audit log administration backend",
	Long: `adminpanel serves the admin console and its REST API for users, roles
and the audit log.

	adminpanel server
	adminpanel migrate up
	adminpanel logs archive`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadRuntime reads configuration and builds the logger every command uses.
func loadRuntime() (config.Config, zerolog.Logger) {
	cfg := config.LoadConfig()
	log := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return cfg, log
}
