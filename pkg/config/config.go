/*
Package config loads the process-wide flag configuration and the build
manifest the CLI composes rules from.
*/
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/tmaxmax/zigrules/pkg/zig"
)

// LoadDefaults reads the flag configuration from defaults, an optional
// config file and ZIGRULES_* environment variables. When path is empty, a
// "zigrules" config file is looked up in the working directory and its
// absence is not an error; an explicit path must exist.
func LoadDefaults(path string) (zig.Defaults, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("zigrules")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("ZIGRULES")
	v.AutomaticEnv()

	v.SetDefault("compiler", zig.DefaultCompiler)
	v.SetDefault("opt_flags", []string{})
	v.SetDefault("debug_flags", []string{})
	v.SetDefault("linker_flags", []string{})

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return zig.Defaults{}, fmt.Errorf("config: %w", err)
		}
	}

	return zig.Defaults{
		Compiler:    v.GetString("compiler"),
		OptFlags:    v.GetStringSlice("opt_flags"),
		DebugFlags:  v.GetStringSlice("debug_flags"),
		LinkerFlags: v.GetStringSlice("linker_flags"),
	}, nil
}
