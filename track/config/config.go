/*
NAME
  config.go

DESCRIPTION
  config.go holds the Config struct: the immutable set of tunable
  parameters for a tracking Pipeline, constructed once at startup per
  Design Note "Global configuration" rather than read from process-wide
  mutable state during ticks.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config provides the tunable parameters and logging
// configuration for a track.Pipeline.
package config

import (
	"io"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default values for fields left unset.
const (
	DefaultMaxCorners             = 300
	DefaultNumTrainLevels         = 8
	DefaultMaxPatternSize         = 512
	DefaultMatchThreshold         = 48
	DefaultPointThreshold         = 20
	DefaultGoodMatchThreshold     = 20
	DefaultPruneThreshold         = 20.0
	DefaultBlurSize               = 5
	DefaultLapThreshold           = 30
	DefaultEigenThreshold         = 25
	DefaultMaxPerLevel            = 300
	DefaultPyramidLevels          = 5
	DefaultDensityThreshold       = 25.0
	DefaultGridDistance           = 30
	DefaultMaxQuadAngleAllowed    = 120
	DefaultMaxPersistOpticalFrames = 6
)

// Config provides the parameters relevant to a tracking Pipeline. A
// zero-value Config is invalid until Validate has filled in defaults;
// Logger must always be set explicitly.
type Config struct {
	// Logger holds an implementation of the Logger interface. This
	// must be set for the pipeline to work correctly.
	Logger logging.Logger

	// LogLevel is the pipeline's logging verbosity level. Valid values
	// are the logging.Debug/Info/Warning/Error/Fatal enums.
	LogLevel int8

	MaxCorners             uint
	NumTrainLevels         uint
	MaxPatternSize         uint
	MatchThreshold         uint
	PointThreshold         uint
	GoodMatchThreshold     uint
	PruneThreshold         float64
	BlurSize               uint
	LapThreshold           float64
	EigenThreshold         float64
	MaxPerLevel            uint
	PyramidLevels          uint
	DensityThreshold       float64
	GridDistance           uint
	MaxQuadAngleAllowed    uint
	MaxPersistOpticalFrames uint
}

// Validate fills in package defaults for any unset (zero-value) field,
// logging each substitution via LogInvalidField, the way
// revid/config.Config.Validate defaults its own fields.
func (c *Config) Validate() error {
	if c.MaxCorners == 0 {
		c.LogInvalidField("MaxCorners", DefaultMaxCorners)
		c.MaxCorners = DefaultMaxCorners
	}
	if c.NumTrainLevels == 0 {
		c.LogInvalidField("NumTrainLevels", DefaultNumTrainLevels)
		c.NumTrainLevels = DefaultNumTrainLevels
	}
	if c.MaxPatternSize == 0 {
		c.LogInvalidField("MaxPatternSize", DefaultMaxPatternSize)
		c.MaxPatternSize = DefaultMaxPatternSize
	}
	if c.MatchThreshold == 0 {
		c.LogInvalidField("MatchThreshold", DefaultMatchThreshold)
		c.MatchThreshold = DefaultMatchThreshold
	}
	if c.PointThreshold == 0 {
		c.LogInvalidField("PointThreshold", DefaultPointThreshold)
		c.PointThreshold = DefaultPointThreshold
	}
	if c.GoodMatchThreshold == 0 {
		c.LogInvalidField("GoodMatchThreshold", DefaultGoodMatchThreshold)
		c.GoodMatchThreshold = DefaultGoodMatchThreshold
	}
	if c.PruneThreshold == 0 {
		c.LogInvalidField("PruneThreshold", DefaultPruneThreshold)
		c.PruneThreshold = DefaultPruneThreshold
	}
	if c.BlurSize == 0 {
		c.LogInvalidField("BlurSize", DefaultBlurSize)
		c.BlurSize = DefaultBlurSize
	}
	if c.LapThreshold == 0 {
		c.LogInvalidField("LapThreshold", DefaultLapThreshold)
		c.LapThreshold = DefaultLapThreshold
	}
	if c.EigenThreshold == 0 {
		c.LogInvalidField("EigenThreshold", DefaultEigenThreshold)
		c.EigenThreshold = DefaultEigenThreshold
	}
	if c.MaxPerLevel == 0 {
		c.LogInvalidField("MaxPerLevel", DefaultMaxPerLevel)
		c.MaxPerLevel = DefaultMaxPerLevel
	}
	if c.PyramidLevels == 0 {
		c.LogInvalidField("PyramidLevels", DefaultPyramidLevels)
		c.PyramidLevels = DefaultPyramidLevels
	}
	if c.DensityThreshold == 0 {
		c.LogInvalidField("DensityThreshold", DefaultDensityThreshold)
		c.DensityThreshold = DefaultDensityThreshold
	}
	if c.GridDistance == 0 {
		c.LogInvalidField("GridDistance", DefaultGridDistance)
		c.GridDistance = DefaultGridDistance
	}
	if c.MaxQuadAngleAllowed == 0 {
		c.LogInvalidField("MaxQuadAngleAllowed", DefaultMaxQuadAngleAllowed)
		c.MaxQuadAngleAllowed = DefaultMaxQuadAngleAllowed
	}
	if c.MaxPersistOpticalFrames == 0 {
		c.LogInvalidField("MaxPersistOpticalFrames", DefaultMaxPersistOpticalFrames)
		c.MaxPersistOpticalFrames = DefaultMaxPersistOpticalFrames
	}
	return nil
}

// LogInvalidField logs that a config field was unset and has been
// defaulted, the way revid/config.Config.LogInvalidField does.
func (c *Config) LogInvalidField(name string, def interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// NewFileLogger returns a logging.Logger that writes to a rotating
// on-disk file at path, the way cmd/rv/main.go wires up a lumberjack
// file sink behind logging.New.
func NewFileLogger(level int8, path string, maxSizeMB, maxBackups, maxAgeDays int, suppress bool) logging.Logger {
	fileLog := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return logging.New(level, io.Writer(fileLog), suppress)
}
