package internal

import (
	"github.com/richardpark-msft/rawdump/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const EnvFileFlagName = "env-file"
const LogLevelFlagName = "log-level"
const LogFormatFlagName = "log-format"

type CommonFlags struct {
	EnvFile   string
	LogLevel  string
	LogFormat string
}

func AddCommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(EnvFileFlagName, config.DefaultEnvFile, "A .env file with RAWDUMP_* variables to use as defaults for unset flags")
	cmd.PersistentFlags().String(LogLevelFlagName, "info", "Log level (debug, info, warn or error)")
	cmd.PersistentFlags().String(LogFormatFlagName, "text", "Log format (text or json)")
}

// ExtractCommonFlags loads the env file, then reads the common flags. It must be called
// before any environment variable is used as a default.
func ExtractCommonFlags(cmd *cobra.Command) (CommonFlags, error) {
	envFile, err := cmd.Flags().GetString(EnvFileFlagName)

	if err != nil {
		return CommonFlags{}, err
	}

	if _, err := config.LoadEnvFile(envFile); err != nil {
		return CommonFlags{}, err
	}

	logLevel, err := StringFlagOrEnv(cmd.Flags(), LogLevelFlagName, config.EnvLogLevel)

	if err != nil {
		return CommonFlags{}, err
	}

	logFormat, err := StringFlagOrEnv(cmd.Flags(), LogFormatFlagName, config.EnvLogFormat)

	if err != nil {
		return CommonFlags{}, err
	}

	return CommonFlags{
		EnvFile:   envFile,
		LogLevel:  logLevel,
		LogFormat: logFormat,
	}, nil
}

// StringFlagOrEnv returns the value of the flag if it was set on the command line. Otherwise the
// environment variable envName is used, if it's set, falling back to the flag's default.
func StringFlagOrEnv(flags *pflag.FlagSet, name string, envName string) (string, error) {
	value, err := flags.GetString(name)

	if err != nil {
		return "", err
	}

	if !flags.Changed(name) {
		if envValue, ok := config.Lookup(envName); ok {
			return envValue, nil
		}
	}

	return value, nil
}
