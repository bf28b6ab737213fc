package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/git-manager/internal/automation"
	"github.com/temirov/git-manager/internal/batch"
	"github.com/temirov/git-manager/internal/execshell"
	"github.com/temirov/git-manager/internal/githubcli"
	"github.com/temirov/git-manager/internal/gitrepo"
	"github.com/temirov/git-manager/internal/manifest"
	"github.com/temirov/git-manager/internal/overlay"
	"github.com/temirov/git-manager/internal/utils"
	"github.com/temirov/git-manager/internal/workspace"
)

const (
	applicationNameConstant                = "git-manager"
	applicationUseConstant                 = applicationNameConstant + " [config]"
	applicationShortDescriptionConstant    = "Apply one automation change across many GitHub repositories"
	applicationLongDescriptionConstant     = "git-manager clones every repository listed in the batch document, runs the playbook entry point inside each clone, then commits and pushes the result on the configured branch."
	settingsFlagNameConstant               = "settings"
	settingsFlagUsageConstant              = "Optional path to a tool settings file (YAML or JSON)."
	logFileFlagNameConstant                = "log-file"
	logFileFlagUsageConstant               = "Path of the run log file."
	fileLogLevelFlagNameConstant           = "file-log-level"
	fileLogLevelFlagUsageConstant          = "Minimum level written to the log file."
	consoleLogLevelFlagNameConstant        = "console-log-level"
	consoleLogLevelFlagUsageConstant       = "Minimum level written to stderr."
	failurePolicyFlagNameConstant          = "failure-policy"
	failurePolicyFlagUsageConstant         = "Reaction to a repository failure: abort or continue."
	maximumArgumentCountConstant           = 1
	configurationLoadErrorTemplateConstant = "unable to load settings: %w"
	loggerCreationErrorTemplateConstant    = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant        = "unable to flush logger: %w"
	settingsInitializedMessageConstant     = "settings initialized"
	runStartedMessageConstant              = "run started"
	runFinishedMessageConstant             = "run finished"
	runFailedMessageConstant               = "run failed"
	logFieldRunIdentifierConstant          = "run_id"
	logFieldConfigurationPathConstant      = "config_path"
	logFieldSettingsFileConstant           = "settings_file"
	logFieldFailurePolicyConstant          = "failure_policy"
	logFieldCompletedConstant              = "completed"
	logFieldFailedConstant                 = "failed"
	logFieldSkippedConstant                = "skipped"
	unloggedFailureTemplateConstant        = "%v\n"
	loggerNotInitializedMessageConstant    = "logger not initialized"
)

// ApplicationDependencies overrides the process-level collaborators used by the CLI.
// Zero values select the operating system implementations.
type ApplicationDependencies struct {
	CommandRunner execshell.CommandRunner
	FileSystem    afero.Fs
	LogFileWriter io.Writer
	ConsoleWriter io.Writer
}

// Application wires the Cobra root command, settings loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	logCloser             io.Closer
	loggerReady           bool
	dependencies          ApplicationDependencies
	settings              utils.ToolSettings
	configurationMetadata utils.LoadedConfiguration
	settingsFilePath      string
}

// NewApplication assembles a CLI application backed by the operating system.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles a CLI application using the provided collaborators.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	if dependencies.CommandRunner == nil {
		dependencies.CommandRunner = execshell.NewOSCommandRunner()
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = afero.NewOsFs()
	}
	if dependencies.ConsoleWriter == nil {
		dependencies.ConsoleWriter = os.Stderr
	}

	application := &Application{
		configurationLoader: utils.NewConfigurationLoader(utils.EnvironmentPrefixConstant, map[string]string{
			utils.LogFileSettingKey:         logFileFlagNameConstant,
			utils.FileLogLevelSettingKey:    fileLogLevelFlagNameConstant,
			utils.ConsoleLogLevelSettingKey: consoleLogLevelFlagNameConstant,
			utils.FailurePolicySettingKey:   failurePolicyFlagNameConstant,
		}),
		loggerFactory: utils.NewLoggerFactory(),
		logger:        zap.NewNop(),
		dependencies:  dependencies,
	}

	defaultSettings := utils.DefaultToolSettings()

	cobraCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.MaximumNArgs(maximumArgumentCountConstant),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runBatch(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetErr(dependencies.ConsoleWriter)
	cobraCommand.PersistentFlags().StringVar(&application.settingsFilePath, settingsFlagNameConstant, "", settingsFlagUsageConstant)
	cobraCommand.Flags().String(logFileFlagNameConstant, fmt.Sprint(defaultSettings[utils.LogFileSettingKey]), logFileFlagUsageConstant)
	cobraCommand.Flags().String(fileLogLevelFlagNameConstant, fmt.Sprint(defaultSettings[utils.FileLogLevelSettingKey]), fileLogLevelFlagUsageConstant)
	cobraCommand.Flags().String(consoleLogLevelFlagNameConstant, fmt.Sprint(defaultSettings[utils.ConsoleLogLevelSettingKey]), consoleLogLevelFlagUsageConstant)
	cobraCommand.Flags().String(failurePolicyFlagNameConstant, fmt.Sprint(defaultSettings[utils.FailurePolicySettingKey]), failurePolicyFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// SetArguments replaces the command-line arguments parsed by Execute.
func (application *Application) SetArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// Execute runs the root command until completion or until SIGINT or SIGTERM
// cancels it. Failures are logged by the run itself; a failure raised before
// the logger exists is written to the console writer instead.
func (application *Application) Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	executionError := application.rootCommand.ExecuteContext(signalContext)
	if executionError != nil && !application.loggerReady {
		fmt.Fprintf(application.dependencies.ConsoleWriter, unloggedFailureTemplateConstant, executionError)
	}

	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		application.settingsFilePath,
		utils.DefaultToolSettings(),
		command.Flags(),
		&application.settings,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	fileLevel, fileLevelError := utils.ParseLogLevel(application.settings.FileLogLevel)
	if fileLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, fileLevelError)
	}
	consoleLevel, consoleLevelError := utils.ParseLogLevel(application.settings.ConsoleLogLevel)
	if consoleLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, consoleLevelError)
	}

	logger, logCloser, loggerCreationError := application.loggerFactory.CreateLogger(utils.LoggerOptions{
		FilePath:      application.settings.LogFile,
		FileLevel:     fileLevel,
		ConsoleLevel:  consoleLevel,
		FileWriter:    application.dependencies.LogFileWriter,
		ConsoleWriter: application.dependencies.ConsoleWriter,
	})
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger
	application.logCloser = logCloser
	application.loggerReady = true

	application.logger.Debug(
		settingsInitializedMessageConstant,
		zap.String(logFieldSettingsFileConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(logFieldFailurePolicyConstant, application.settings.FailurePolicy),
	)
	return nil
}

func (application *Application) runBatch(command *cobra.Command, arguments []string) error {
	if !application.loggerReady {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	configurationPath := manifest.DefaultConfigurationFileName
	if len(arguments) > 0 {
		configurationPath = arguments[0]
	}

	runLogger := application.logger.With(zap.String(logFieldRunIdentifierConstant, uuid.NewString()))
	runLogger.Info(runStartedMessageConstant, zap.String(logFieldConfigurationPathConstant, configurationPath))

	report, runError := application.executeBatch(command.Context(), runLogger, configurationPath)

	runLogger.Info(
		runFinishedMessageConstant,
		zap.Int(logFieldCompletedConstant, report.Count(batch.OutcomeCompleted)),
		zap.Int(logFieldFailedConstant, report.Count(batch.OutcomeFailed)),
		zap.Int(logFieldSkippedConstant, report.Count(batch.OutcomeSkipped)),
	)
	if runError != nil {
		runLogger.Error(runFailedMessageConstant, zap.Error(runError))
		return runError
	}
	return nil
}

func (application *Application) executeBatch(executionContext context.Context, logger *zap.Logger, configurationPath string) (batch.Report, error) {
	failurePolicy, policyError := batch.ParseFailurePolicy(application.settings.FailurePolicy)
	if policyError != nil {
		return batch.Report{}, policyError
	}

	configuration, loadError := manifest.NewLoader(application.dependencies.FileSystem, logger).Load(configurationPath)
	if loadError != nil {
		return batch.Report{}, loadError
	}

	orchestrator, assemblyError := application.assembleOrchestrator(logger, failurePolicy)
	if assemblyError != nil {
		return batch.Report{}, assemblyError
	}

	workspaceManager, workspaceError := workspace.NewManager(application.dependencies.FileSystem, logger)
	if workspaceError != nil {
		return batch.Report{}, workspaceError
	}
	workspaceRoot, createError := workspaceManager.Create()
	if createError != nil {
		return batch.Report{}, createError
	}
	return orchestrator.Run(executionContext, configuration, workspaceRoot)
}

func (application *Application) assembleOrchestrator(logger *zap.Logger, failurePolicy batch.FailurePolicy) (*batch.Orchestrator, error) {
	shellExecutor, executorError := execshell.NewShellExecutor(logger, application.dependencies.CommandRunner)
	if executorError != nil {
		return nil, executorError
	}

	repositoryOperations, operationsError := gitrepo.NewRepositoryOperations(shellExecutor, application.settings.GitHost)
	if operationsError != nil {
		return nil, operationsError
	}

	playbookOverlay, overlayError := overlay.NewPlaybookOverlay(application.dependencies.FileSystem, logger)
	if overlayError != nil {
		return nil, overlayError
	}

	automationRunner, automationError := automation.NewRunner(shellExecutor, application.settings.AutomationEntrypoint)
	if automationError != nil {
		return nil, automationError
	}

	pullRequestClient, clientError := githubcli.NewClient(shellExecutor)
	if clientError != nil {
		return nil, clientError
	}

	return batch.NewOrchestrator(batch.Dependencies{
		Repositories: repositoryOperations,
		Overlay:      playbookOverlay,
		Automation:   automationRunner,
		PullRequests: pullRequestClient,
	}, failurePolicy, logger)
}

func (application *Application) flushLogger() error {
	syncError := syncLoggerInstance(application.logger)
	if application.logCloser != nil {
		if closeError := application.logCloser.Close(); closeError != nil && syncError == nil {
			syncError = closeError
		}
		application.logCloser = nil
	}
	return syncError
}

func syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}
