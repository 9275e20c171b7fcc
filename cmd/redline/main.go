package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/WenkChr/NGD-AGOL-Download/internal/audit"
	"github.com/WenkChr/NGD-AGOL-Download/internal/config"
	"github.com/WenkChr/NGD-AGOL-Download/internal/db"
	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/export"
	import_pkg "github.com/WenkChr/NGD-AGOL-Download/internal/import"
	"github.com/WenkChr/NGD-AGOL-Download/internal/web"
)

var (
	logLevel     string
	logJSON      bool
	localDebug   bool
	showProgress bool
)

func main() {
	// flag defaults below read the environment
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env files: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "redline",
		Short: "NGD redline reconciliation",
		Long: `Reconciles redline edits against the NGD_AL and NGD_STREET registry tables:
classifies every edit, writes date-guarded SQL updates, a geometry-bound layer
for editors and an address range overlap layer for QC.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return debug.Setup(logLevel, logJSON, localDebug)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().BoolVar(&localDebug, "debug", false, "trace every record")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "show a progress bar")

	rootCmd.AddCommand(createDetectCmd())
	rootCmd.AddCommand(createOverlapsCmd())
	rootCmd.AddCommand(createCountsCmd())
	rootCmd.AddCommand(createCSVSQLCmd())
	rootCmd.AddCommand(createPackageCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createPingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// createPingCmd creates a command to test database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			conn, err := db.NewConnection(cfg.DB)
			if err != nil {
				return err
			}
			defer conn.Close()

			fmt.Println("Database connection successful!")
			for _, table := range []string{cfg.Table, cfg.StreetTable} {
				var count int
				if err := conn.DB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
					fmt.Printf("Error counting %s: %v\n", table, err)
					continue
				}
				fmt.Printf("%s rows: %d\n", table, count)
			}
			return nil
		},
	}
}

func createCountsCmd() *cobra.Command {
	var out, uidField string
	cmd := &cobra.Command{
		Use:   "counts [sql-file]",
		Short: "Count field updates and distinct uids in a generated SQL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := audit.CountFields(args[0], uidField)
			if err != nil {
				return err
			}
			if out == "" {
				for _, fc := range counts.Fields {
					fmt.Printf("%-20s %d\n", fc.Variable, fc.Count)
				}
				return nil
			}
			if err := counts.WriteCSV(out); err != nil {
				return err
			}
			fmt.Printf("%s created!\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV output path (prints to stdout when empty)")
	cmd.Flags().StringVar(&uidField, "uid-field", "NGD_UID", "uid column in the WHERE clauses")
	return cmd
}

func createCSVSQLCmd() *cobra.Command {
	var out, table, key string
	cmd := &cobra.Command{
		Use:   "csv-sql [csv-file]",
		Short: "Turn a CSV of attribute changes into one UPDATE per row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = trimExt(args[0]) + ".sql"
			}
			stats, err := import_pkg.NewCSVConverter(localDebug, table, key).ConvertFile(args[0], out)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d statements to %s (%d rows without values, %d errors)\n",
				stats.Written, out, stats.Empty, stats.Errors)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "SQL output path (defaults to the CSV path with .sql)")
	cmd.Flags().StringVar(&table, "table", config.GetEnv("NGD_TBL_NAME", "NGD.NGD_AL"), "table to update")
	cmd.Flags().StringVar(&key, "key", config.GetEnv("NGD_UID_FIELD", "NGD_UID"), "key column")
	return cmd
}

func createPackageCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "package [shapefile]",
		Short: "Zip a shapefile and its sidecar files for upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zipPath, err := export.Package(args[0], out)
			if err != nil {
				return err
			}
			fmt.Printf("Packaged %s\n", zipPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "zip path (defaults to the shapefile path with .zip)")
	return cmd
}

func createServeCmd() *cobra.Command {
	var configFile, dir, host, apiKey string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a run's outputs for QC review",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := web.DefaultConfig()
			if configFile != "" {
				var err error
				if cfg, err = web.LoadConfig(configFile); err != nil {
					return fmt.Errorf("failed to load server config: %w", err)
				}
			}
			if cmd.Flags().Changed("dir") {
				cfg.OutputDir = dir
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if apiKey != "" {
				cfg.Auth = web.AuthConfig{Enabled: true, APIKey: apiKey}
			}

			server, err := web.NewServer(cfg)
			if err != nil {
				return err
			}
			return server.Start()
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "JSON server configuration")
	cmd.Flags().StringVar(&dir, "dir", "output", "run output directory")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	cmd.Flags().StringVar(&apiKey, "api-key", config.GetEnv("NGD_REVIEW_API_KEY", ""), "require this X-API-Key on API requests")
	return cmd
}
