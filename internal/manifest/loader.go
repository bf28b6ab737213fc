package manifest

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/git-manager/internal/runerrors"
	pathutils "github.com/temirov/git-manager/internal/utils/path"
)

const (
	missingFieldTemplateConstant         = "'%s' was not provided in the config file"
	invalidFieldTemplateConstant         = "'%s' is invalid in the config file: %s"
	unreadableConfigurationTemplate      = "'%s' does not exist or is not readable"
	malformedConfigurationTemplate       = "'%s' is not a valid YAML document: %v"
	fieldPathSeparatorConstant           = "."
	mappingExpectedReasonConstant        = "expected a mapping"
	repositoryListExpectedReasonConstant = "expected a sequence of repository names"
	emptyRepositoryNameReasonConstant    = "repository names must be non-empty"
	loadConfigurationOperationName       = "load configuration"
	validateConfigurationOperationName   = "validate configuration"
	configurationPathRequiredMessage     = "configuration path must be provided"
	usingConfigurationFileMessage        = "Using config file"
	validatingConfigurationMessage       = "Starting to validate config"
	validatedConfigurationMessage        = "Successfully validated config"
	logFieldConfigurationPathConstant    = "config_file"
	logFieldOrganizationCountConstant    = "organizations"
	logFieldRepositoryCountConstant      = "repositories"
	mergeKeyTagConstant                  = "!!merge"
)

// ValidationError reports the first field of the batch document that is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

// Error describes the offending field.
func (validationError ValidationError) Error() string {
	if len(validationError.Reason) == 0 {
		return fmt.Sprintf(missingFieldTemplateConstant, validationError.Field)
	}
	return fmt.Sprintf(invalidFieldTemplateConstant, validationError.Field, validationError.Reason)
}

// Loader reads batch documents from a file system.
type Loader struct {
	fileSystem   afero.Fs
	logger       *zap.Logger
	homeExpander *pathutils.HomeExpander
}

// NewLoader constructs a Loader. A nil file system falls back to the operating system.
func NewLoader(fileSystem afero.Fs, logger *zap.Logger) *Loader {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fileSystem: fileSystem, logger: logger, homeExpander: pathutils.NewHomeExpander()}
}

// Load reads, decodes and validates the batch document at configurationPath.
func (loader *Loader) Load(configurationPath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(configurationPath)
	if len(trimmedPath) == 0 {
		return Configuration{}, loader.loadFailure(errors.New(configurationPathRequiredMessage))
	}
	resolvedPath := loader.homeExpander.Expand(trimmedPath)

	contentBytes, readError := afero.ReadFile(loader.fileSystem, resolvedPath)
	if readError != nil {
		return Configuration{}, loader.loadFailure(fmt.Errorf("%s: %w", fmt.Sprintf(unreadableConfigurationTemplate, resolvedPath), readError))
	}
	loader.logger.Debug(usingConfigurationFileMessage, zap.String(logFieldConfigurationPathConstant, resolvedPath))

	configuration, parseError := loader.Parse(contentBytes)
	if parseError != nil {
		var validationError ValidationError
		if errors.As(parseError, &validationError) {
			return Configuration{}, parseError
		}
		return Configuration{}, loader.loadFailure(fmt.Errorf(malformedConfigurationTemplate, resolvedPath, parseError))
	}

	return configuration, nil
}

// Parse decodes and validates an in-memory batch document.
func (loader *Loader) Parse(contentBytes []byte) (Configuration, error) {
	var documentNode yaml.Node
	if unmarshalError := yaml.Unmarshal(contentBytes, &documentNode); unmarshalError != nil {
		return Configuration{}, unmarshalError
	}

	loader.logger.Debug(validatingConfigurationMessage)

	rootNode := resolveDocumentRoot(&documentNode)

	organizationsNode, organizationsPresent := mappingValue(rootNode, OrganizationsKey)
	if !organizationsPresent {
		return Configuration{}, validationFailure(ValidationError{Field: OrganizationsKey})
	}

	generalNode, generalPresent := mappingValue(rootNode, GeneralKey)
	if !generalPresent {
		return Configuration{}, validationFailure(ValidationError{Field: GeneralKey})
	}

	for _, mandatoryKey := range MandatoryGeneralKeys {
		if _, keyPresent := mappingValue(generalNode, mandatoryKey); !keyPresent {
			return Configuration{}, validationFailure(ValidationError{Field: mandatoryKey})
		}
	}

	general, generalError := decodeGeneralSection(generalNode)
	if generalError != nil {
		return Configuration{}, validationFailure(generalError)
	}
	general.PlaybookDirectory = loader.homeExpander.Expand(general.PlaybookDirectory)

	organizations, organizationsError := decodeOrganizations(organizationsNode)
	if organizationsError != nil {
		return Configuration{}, validationFailure(organizationsError)
	}

	configuration := Configuration{General: general, Organizations: organizations}
	loader.logger.Debug(
		validatedConfigurationMessage,
		zap.Int(logFieldOrganizationCountConstant, len(organizations)),
		zap.Int(logFieldRepositoryCountConstant, len(configuration.RepositoryReferences())),
	)

	return configuration, nil
}

func (loader *Loader) loadFailure(cause error) error {
	return runerrors.OperationError{Kind: runerrors.KindConfiguration, Operation: loadConfigurationOperationName, Cause: cause}
}

func validationFailure(cause error) error {
	return runerrors.OperationError{Kind: runerrors.KindConfiguration, Operation: validateConfigurationOperationName, Cause: cause}
}

func resolveDocumentRoot(documentNode *yaml.Node) *yaml.Node {
	if documentNode.Kind == yaml.DocumentNode && len(documentNode.Content) > 0 {
		return documentNode.Content[0]
	}
	return documentNode
}

// mappingEntry is one key of a mapping after aliases and merge keys are resolved.
type mappingEntry struct {
	key   string
	value *yaml.Node
}

// resolveAlias follows alias nodes to the node they reference.
func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// mappingEntries flattens a mapping in document order. Merged keys come first
// and explicit keys override them; with several merge sources the earliest wins.
func mappingEntries(node *yaml.Node) []mappingEntry {
	return collectMappingEntries(node, map[*yaml.Node]bool{})
}

// collectMappingEntries skips mappings already being expanded so self-referencing anchors terminate.
func collectMappingEntries(node *yaml.Node, expanding map[*yaml.Node]bool) []mappingEntry {
	node = resolveAlias(node)
	if node == nil || node.Kind != yaml.MappingNode || expanding[node] {
		return nil
	}
	expanding[node] = true
	defer delete(expanding, node)

	var mergedEntries []mappingEntry
	var explicitEntries []mappingEntry
	for contentIndex := 0; contentIndex+1 < len(node.Content); contentIndex += 2 {
		keyNode := node.Content[contentIndex]
		valueNode := node.Content[contentIndex+1]
		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == mergeKeyTagConstant {
			mergedEntries = append(mergedEntries, mergeSourceEntries(valueNode, expanding)...)
			continue
		}
		explicitEntries = append(explicitEntries, mappingEntry{key: keyNode.Value, value: valueNode})
	}

	entries := make([]mappingEntry, 0, len(mergedEntries)+len(explicitEntries))
	positions := make(map[string]int, cap(entries))
	for _, entry := range append(mergedEntries, explicitEntries...) {
		if position, seen := positions[entry.key]; seen {
			entries[position].value = entry.value
			continue
		}
		positions[entry.key] = len(entries)
		entries = append(entries, entry)
	}
	return entries
}

// mergeSourceEntries expands the value of a merge key: one mapping or a sequence of them.
func mergeSourceEntries(valueNode *yaml.Node, expanding map[*yaml.Node]bool) []mappingEntry {
	valueNode = resolveAlias(valueNode)
	if valueNode == nil || valueNode.Kind != yaml.SequenceNode {
		return collectMappingEntries(valueNode, expanding)
	}
	var entries []mappingEntry
	for sourceIndex := len(valueNode.Content) - 1; sourceIndex >= 0; sourceIndex-- {
		entries = append(entries, collectMappingEntries(valueNode.Content[sourceIndex], expanding)...)
	}
	return entries
}

// mappingValue returns the resolved value stored under key when node is a mapping.
func mappingValue(node *yaml.Node, key string) (*yaml.Node, bool) {
	for _, entry := range mappingEntries(node) {
		if entry.key == key {
			return resolveAlias(entry.value), true
		}
	}
	return nil, false
}

func decodeGeneralSection(generalNode *yaml.Node) (GeneralSection, error) {
	var rawGeneral map[string]any
	if decodeError := generalNode.Decode(&rawGeneral); decodeError != nil {
		return GeneralSection{}, ValidationError{Field: GeneralKey, Reason: decodeError.Error()}
	}

	var general GeneralSection
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &general,
		TagName: "mapstructure",
	})
	if decoderError != nil {
		return GeneralSection{}, decoderError
	}

	if decodeError := decoder.Decode(rawGeneral); decodeError != nil {
		return GeneralSection{}, ValidationError{Field: GeneralKey, Reason: decodeError.Error()}
	}

	return general, nil
}

func decodeOrganizations(organizationsNode *yaml.Node) ([]Organization, error) {
	organizationsNode = resolveAlias(organizationsNode)
	if organizationsNode.Kind != yaml.MappingNode {
		return nil, ValidationError{Field: OrganizationsKey, Reason: mappingExpectedReasonConstant}
	}

	organizationEntries := mappingEntries(organizationsNode)
	organizations := make([]Organization, 0, len(organizationEntries))
	for _, organizationEntry := range organizationEntries {
		organizationName := organizationEntry.key
		organizationField := strings.Join([]string{OrganizationsKey, organizationName}, fieldPathSeparatorConstant)
		organizationNode := resolveAlias(organizationEntry.value)
		if organizationNode == nil || organizationNode.Kind != yaml.MappingNode {
			return nil, ValidationError{Field: organizationField, Reason: mappingExpectedReasonConstant}
		}

		repositoriesField := strings.Join([]string{organizationField, RepositoriesKey}, fieldPathSeparatorConstant)
		repositoriesNode, repositoriesPresent := mappingValue(organizationNode, RepositoriesKey)
		if !repositoriesPresent {
			return nil, ValidationError{Field: repositoriesField}
		}
		if repositoriesNode.Kind != yaml.SequenceNode {
			return nil, ValidationError{Field: repositoriesField, Reason: repositoryListExpectedReasonConstant}
		}

		var repositories []string
		if decodeError := repositoriesNode.Decode(&repositories); decodeError != nil {
			return nil, ValidationError{Field: repositoriesField, Reason: repositoryListExpectedReasonConstant}
		}
		for _, repository := range repositories {
			if len(strings.TrimSpace(repository)) == 0 {
				return nil, ValidationError{Field: repositoriesField, Reason: emptyRepositoryNameReasonConstant}
			}
		}

		organizations = append(organizations, Organization{Name: organizationName, Repositories: repositories})
	}

	return organizations, nil
}
