// Package main runs one planopt optimization session from a YAML
// configuration file and renders the timing report.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clinrad/planopt/internal/config"
	"github.com/clinrad/planopt/internal/optimize"
	"github.com/clinrad/planopt/internal/phantom"
	"github.com/clinrad/planopt/internal/planstore"
	"github.com/clinrad/planopt/internal/plansys"
	"github.com/clinrad/planopt/internal/status"
	"github.com/clinrad/planopt/pkg/adapters"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/output"
	"go.uber.org/zap"
)

// initializeLogger creates a zap logger based on the logging configuration
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level
	logLevel := loggingConfig.Level
	if logLevelOverride != "" {
		logLevel = logLevelOverride
	}
	if logLevel == "" {
		logLevel = "info"
	}

	// Parse log level
	var level zap.AtomicLevel
	switch logLevel {
	case "debug":
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn", "warning":
		level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return nil, fmt.Errorf("invalid log level: %s", logLevel)
	}

	// Determine log format
	logFormat := loggingConfig.Format
	if logFormat == "" {
		logFormat = "json"
	}

	// Create logger config
	var zapConfig zap.Config
	switch logFormat {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", logFormat)
	}

	zapConfig.Level = level

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		// Ensure the directory exists
		dir := filepath.Dir(loggingConfig.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
		}
		// Test if we can create/write to the file
		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// loadHandle restores the configured patient's saved snapshot, or builds the
// case from the configuration on first run and saves the starting state.
func loadHandle(logger *zap.Logger, conf *config.Configuration, store *planstore.Store) (*plansys.SessionHandle, error) {
	if store.Exists(conf.Patient.ID) {
		logger.Info(fmt.Sprintf("restoring saved state for patient %s", conf.Patient.ID),
			zap.String("op", "main"),
		)
		return store.Reload(plansys.SessionRef{
			PatientID:    conf.Patient.ID,
			LastName:     conf.Patient.LastName,
			CaseName:     conf.Case.Name,
			PlanName:     conf.Case.Plan,
			BeamsetLabel: conf.Case.Beamset,
		})
	}

	logger.Info(fmt.Sprintf("no saved state for patient %s, building case from configuration", conf.Patient.ID),
		zap.String("op", "main"),
	)
	handle, err := phantom.BuildHandle(conf)
	if err != nil {
		return nil, err
	}
	if err := store.Save(handle.Patient); err != nil {
		return nil, err
	}
	return handle, nil
}

func main() {
	// Parse command line flags
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	reportFormatFlag := flag.String("report-format", "", "type of report: pretty (default), yaml, or json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	stateDir := flag.String("state-dir", "", "patient snapshot directory override")
	flag.Parse()

	// Load the config file based on path provided via CLI or the default
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		// Use basic logging since we can't initialize proper logger without config
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s, %v\"}\n", *configLocation, err)
		return
	}

	// Initialize logger with configuration
	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger, %v\"}\n", err)
		return
	}
	defer logger.Sync()

	// A loose options map replaces the structured optimization block
	if len(conf.OptimizationOptions) > 0 {
		conf.Optimization = adapters.ResolveOptions(conf.OptimizationOptions)
	}

	// CLI flags take precedence over config file values
	if *stateDir != "" {
		conf.StateDir = *stateDir
	}
	if *reportFormatFlag != "" {
		conf.Report.Format = *reportFormatFlag
	}

	// Validate configuration; defaults are applied here
	if err := conf.Validate(); err != nil {
		logger.Fatal("configuration validation failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Show warnings for settings that interact in surprising ways
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	store, err := planstore.NewStore(logger, conf.StateDir)
	if err != nil {
		logger.Fatal("failed to open patient store",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	handle, err := loadHandle(logger, conf, store)
	if err != nil {
		logger.Fatal("failed to load patient state",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	host := phantom.NewHost(logger)
	session, err := optimize.NewSession(logger, conf, optimize.Deps{
		Oracle: host,
		Model:  host,
		Store:  store,
		Status: status.NewZapSink(logger),
	})
	if err != nil {
		logger.Fatal("failed to initialize optimization session",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Run the optimization session
	results, err := session.Run(handle)
	if err != nil {
		if plansys.IsRestartRequired(err) {
			logger.Warn(err.Error(), zap.String("op", "main"))
			logger.Warn("rerun planopt with resetBeams enabled to apply the adjusted limits",
				zap.String("op", "main"),
			)
			return
		}
		logger.Fatal("optimization session failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Output results
	rendered, err := output.Render(results, conf.Report.Format)
	if err != nil {
		logger.Fatal("failed to render report",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	fmt.Print(rendered)
}
