package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvironmentPrefixConstant prefixes environment variables overriding tool settings.
	EnvironmentPrefixConstant = "GITMANAGER"

	// Tool setting keys as they appear in settings files.
	LogFileSettingKey              = "log_file"
	FileLogLevelSettingKey         = "file_log_level"
	ConsoleLogLevelSettingKey      = "console_log_level"
	FailurePolicySettingKey        = "failure_policy"
	GitHostSettingKey              = "git_host"
	AutomationEntrypointSettingKey = "automation_entrypoint"

	defaultFailurePolicyConstant        = "abort"
	defaultGitHostConstant              = "github.com"
	defaultAutomationEntrypointConstant = "run.yml"
	environmentKeySeparatorOldConstant  = "."
	environmentKeySeparatorNewConstant  = "_"
	flagBindErrorTemplateConstant       = "failed to bind flag %s: %w"
	settingsReadErrorTemplateConstant   = "failed to read settings: %w"
	settingsParseErrorTemplateConstant  = "failed to parse settings: %w"
)

// ToolSettings controls how git-manager logs and executes a batch.
type ToolSettings struct {
	LogFile              string `mapstructure:"log_file"`
	FileLogLevel         string `mapstructure:"file_log_level"`
	ConsoleLogLevel      string `mapstructure:"console_log_level"`
	FailurePolicy        string `mapstructure:"failure_policy"`
	GitHost              string `mapstructure:"git_host"`
	AutomationEntrypoint string `mapstructure:"automation_entrypoint"`
}

// DefaultToolSettings returns the settings used when nothing overrides them.
func DefaultToolSettings() map[string]any {
	return map[string]any{
		LogFileSettingKey:              DefaultLogFileConstant,
		FileLogLevelSettingKey:         string(LogLevelDebug),
		ConsoleLogLevelSettingKey:      string(LogLevelError),
		FailurePolicySettingKey:        defaultFailurePolicyConstant,
		GitHostSettingKey:              defaultGitHostConstant,
		AutomationEntrypointSettingKey: defaultAutomationEntrypointConstant,
	}
}

// ConfigurationLoader wraps Viper to layer defaults, an optional settings file,
// environment variables, and command-line flags.
type ConfigurationLoader struct {
	environmentPrefix      string
	environmentKeyReplacer *strings.Replacer
	flagBindings           map[string]string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader honoring environmentPrefix.
// flagBindings maps setting keys to the names of flags that override them.
func NewConfigurationLoader(environmentPrefix string, flagBindings map[string]string) *ConfigurationLoader {
	duplicatedBindings := make(map[string]string, len(flagBindings))
	for settingKey, flagName := range flagBindings {
		duplicatedBindings[settingKey] = flagName
	}

	return &ConfigurationLoader{
		environmentPrefix:      environmentPrefix,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
		flagBindings:           duplicatedBindings,
	}
}

// LoadConfiguration populates targetConfiguration. Precedence from lowest to
// highest is defaults, the settings file, environment variables, then flags
// explicitly set on flagSet. An empty configurationFilePath skips the file.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, flagSet *pflag.FlagSet, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if flagSet != nil {
		for settingKey, flagName := range loader.flagBindings {
			flag := flagSet.Lookup(flagName)
			if flag == nil {
				continue
			}
			if bindError := viperInstance.BindPFlag(settingKey, flag); bindError != nil {
				return LoadedConfiguration{}, fmt.Errorf(flagBindErrorTemplateConstant, flagName, bindError)
			}
		}
	}

	if len(strings.TrimSpace(configurationFilePath)) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
		if readError := viperInstance.ReadInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(settingsReadErrorTemplateConstant, readError)
		}
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(settingsParseErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}
