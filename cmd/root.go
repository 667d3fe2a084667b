package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sunbk201/appbundle/internal/api"
	"github.com/sunbk201/appbundle/internal/asset"
	"github.com/sunbk201/appbundle/internal/config"
	"github.com/sunbk201/appbundle/internal/daemon"
	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/log"
	"github.com/sunbk201/appbundle/internal/session"
	"github.com/sunbk201/appbundle/internal/statistics"
)

var (
	AppVersion    = "Development"
	shutdownChain []func() error
)

var rootCmd = &cobra.Command{
	Use:   "appbundle",
	Short: "appbundle reroutes in-app URLs to bundled assets",
	Long:  "appbundle maps app-bundle:/// URLs and caller-defined aliases onto local asset locations, and serves per-session route tables over HTTP.",
	RunE:  runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Short flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path")
	rootCmd.Flags().StringP("bind", "b", "", "Bind address")
	rootCmd.Flags().IntP("port", "p", 0, "Port")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level")
	rootCmd.Flags().StringP("asset-root", "a", "", "Directory holding the bundled assets")
	rootCmd.Flags().BoolP("version", "v", false, "Show version")
	rootCmd.Flags().BoolP("generate-config", "g", false, "Generate template config file")

	// Long flags
	rootCmd.Flags().String("log-file", "", "Log file path")
	rootCmd.Flags().String("secret", "", "API secret")
	rootCmd.PersistentFlags().String("scheme", "", "Bundle URL scheme")
	rootCmd.Flags().Bool("allow-file-access", false, "Serve file:// targets outside the asset prefix")
	rootCmd.PersistentFlags().Duration("match-timeout", 0, "Per-match regex timeout")
	rootCmd.Flags().String("stats-file", "", "Rule hit statistics dump file")
	rootCmd.Flags().String("group", "", "Group to run as")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("bind-address", rootCmd.Flags().Lookup("bind"))
	_ = viper.BindPFlag("port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("bundle.asset-root", rootCmd.Flags().Lookup("asset-root"))
	_ = viper.BindPFlag("log-file", rootCmd.Flags().Lookup("log-file"))
	_ = viper.BindPFlag("api-secret", rootCmd.Flags().Lookup("secret"))
	_ = viper.BindPFlag("bundle.scheme", rootCmd.PersistentFlags().Lookup("scheme"))
	_ = viper.BindPFlag("allow-file-access", rootCmd.Flags().Lookup("allow-file-access"))
	_ = viper.BindPFlag("match-timeout", rootCmd.PersistentFlags().Lookup("match-timeout"))
	_ = viper.BindPFlag("stats-file", rootCmd.Flags().Lookup("stats-file"))
	_ = viper.BindPFlag("group", rootCmd.Flags().Lookup("group"))

	// APPBUNDLE_BIND_ADDRESS, APPBUNDLE_BUNDLE_SCHEME, ...
	viper.SetEnvPrefix("APPBUNDLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(resolveCmd)
}

func initConfig() {
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.MergeInConfig(); err != nil {
			slog.Error("Failed to read config file", slog.Any("error", err))
			os.Exit(1)
		}
	}
	config.SetDefaults()
}

func runRoot(cmd *cobra.Command, args []string) error {
	showVer, _ := cmd.Flags().GetBool("version")
	if showVer {
		fmt.Printf("appbundle version %s\n", AppVersion)
		return nil
	}

	genConfig, _ := cmd.Flags().GetBool("generate-config")
	if genConfig {
		_, err := config.GenerateTemplateConfig(true)
		if err != nil {
			return fmt.Errorf("failed to generate template config: %w", err)
		}
		fmt.Println("Template config file 'config.yaml' generated successfully.")
		return nil
	}

	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	lb := log.NewBroadcaster()
	log.SetLogConf(cfg.LogLevel, cfg.LogFile, lb)
	log.LogHeader(AppVersion, cfg)

	if err := daemon.Setup(cfg.Group); err != nil {
		slog.Error("daemon.Setup", slog.Any("error", err))
		return err
	}

	statsFile := cfg.StatsFile
	if statsFile == "" {
		statsFile = log.GetStatsFilePath("appbundle_hits")
	}
	recorder := statistics.NewRecorder(statsFile)
	recorder.Start()
	addShutdown("recorder.Close", recorder.Close)

	resolver := asset.NewFileResolver(cfg.Bundle.AssetPrefix, os.DirFS(cfg.Bundle.AssetRoot),
		asset.WithFileAccess(cfg.AllowFileAccess),
	)

	store, err := session.NewStore(sessionOptions(cfg), resolver, recorder)
	if err != nil {
		slog.Error("session.NewStore", slog.Any("error", err))
		shutdown()
		return err
	}

	srv := api.New(AppVersion, cfg, store, recorder, lb)
	addShutdown("api.Close", srv.Close)
	if err := srv.Start(); err != nil {
		slog.Error("api.Start", slog.Any("error", err))
		shutdown()
		return err
	}

	cleanup := make(chan os.Signal, 1)
	signal.Notify(cleanup, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	for {
		s := <-cleanup
		slog.Info("Received signal", slog.String("signal", s.String()))
		switch s {
		case syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM:
			shutdown()
			return nil
		case syscall.SIGHUP:
		default:
			return nil
		}
	}
}

func sessionOptions(cfg *config.Config) session.Options {
	presets := make([]intercept.AddRule, 0, len(cfg.Aliases))
	for _, a := range cfg.Aliases {
		presets = append(presets, intercept.AddRule{
			Match:       a.Match,
			Replace:     a.Replace,
			Replacement: a.Replacement,
			Redirect:    a.Redirect,
		})
	}
	return session.Options{
		Layout:       cfg.Layout(),
		MatchTimeout: cfg.MatchTimeout,
		MaxSessions:  cfg.Session.Max,
		TTL:          cfg.Session.TTL,
		Presets:      presets,
	}
}

func addShutdown(name string, fn func() error) {
	shutdownChain = append(shutdownChain, func() error {
		if err := fn(); err != nil {
			slog.Error(name, slog.Any("error", err))
			return err
		}
		return nil
	})
}

func shutdown() {
	for i := len(shutdownChain) - 1; i >= 0; i-- {
		_ = shutdownChain[i]()
	}
	slog.Info("appbundle exit")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
