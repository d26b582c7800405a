package app

import (
	"time"

	"crontimer/internal/config"
	"crontimer/internal/runtime/supervisor"
)

// ---- Config ----

type Config = config.Config

type ConfigManager = config.ConfigManager

var NewConfigManager = config.NewConfigManager

type ScheduleConfig = config.ScheduleConfig

type DebugConfig = config.DebugConfig

var SummarizeConfigChange = config.SummarizeConfigChange

var DiffSchedules = config.DiffSchedules

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError
