// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"

	"github.com/clinrad/planopt/pkg/configprocessor"
	"github.com/clinrad/planopt/pkg/constants"
	"github.com/clinrad/planopt/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for planopt.
type Configuration struct {
	Patient      PatientSpec        `yaml:"patient"`
	Case         CaseSpec           `yaml:"case"`
	Optimization OptimizationConfig `yaml:"optimization,omitempty"`
	// OptimizationOptions carries optimization settings under the planning
	// console's loose key names. When present it replaces the optimization
	// block; pkg/adapters resolves it.
	OptimizationOptions map[string]interface{} `yaml:"optimizationOptions,omitempty"`
	Logging             LoggingConfig          `yaml:"logging,omitempty"`
	Report              ReportConfig           `yaml:"report,omitempty"`
	StateDir            string                 `yaml:"stateDir,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// ReportConfig holds report rendering options
type ReportConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, yaml, json
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// Normalize applies defaults across all configuration sections.
func (conf *Configuration) Normalize() {
	conf.Case.Normalize()
	conf.Optimization.Normalize()
	if conf.Report.Format == "" {
		conf.Report.Format = constants.ReportFormatPretty
	}
	if conf.StateDir == "" {
		conf.StateDir = constants.DefaultStateDir
	}
}

// Validate checks for configuration errors that prevent a session from
// starting. Defaults are applied first.
func (conf *Configuration) Validate() error {
	conf.Normalize()

	if err := conf.Patient.Validate(); err != nil {
		return err
	}
	if err := conf.Case.Validate(); err != nil {
		return err
	}
	if err := conf.Optimization.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateReportFormat(conf.Report.Format); err != nil {
		return err
	}

	return nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings
func (conf *Configuration) ValidateConfiguration() []string {
	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(configprocessor.OptimizationInfo{
		FluenceOnly:      conf.Optimization.FluenceOnly,
		VaryGrid:         conf.Optimization.VaryGrid,
		GridSizes:        conf.Optimization.GridSizes,
		SegmentWeight:    conf.Optimization.SegmentWeight,
		ReduceTime:       conf.Optimization.ReduceTime,
		ReduceOAR:        conf.Optimization.ReduceOAREnabled(),
		ReduceModulation: conf.Optimization.ReduceModulation,
		ModulationTarget: conf.Optimization.ModulationTarget,
		GantrySpacing:    conf.Optimization.GantrySpacing,
	})
}
