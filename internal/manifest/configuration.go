package manifest

// DefaultConfigurationFileName is used when no configuration path is provided.
const DefaultConfigurationFileName = "git-manager-config.yml"

// Top-level and general section keys.
const (
	OrganizationsKey     = "orgs"
	GeneralKey           = "general"
	RepositoriesKey      = "repos"
	PullRequestNameKey   = "pr-name"
	BranchNameKey        = "branch-name"
	CommitMessageKey     = "commit-message"
	StagePathsKey        = "git-add"
	PlaybookDirectoryKey = "playbook-dir"
	CreateBranchKey      = "create-branch"
	ExtraVariablesKey    = "extra-vars"
	OpenPullRequestKey   = "open-pull-request"
	PullRequestBodyKey   = "pull-request-body"
)

// MandatoryGeneralKeys lists the general keys that must be present, in validation order.
var MandatoryGeneralKeys = []string{
	PullRequestNameKey,
	BranchNameKey,
	CommitMessageKey,
	StagePathsKey,
	PlaybookDirectoryKey,
}

// Configuration is the validated batch document.
type Configuration struct {
	General       GeneralSection
	Organizations []Organization
}

// GeneralSection holds the parameters shared by every repository in a run.
type GeneralSection struct {
	PullRequestName   string         `mapstructure:"pr-name"`
	BranchName        string         `mapstructure:"branch-name"`
	CommitMessage     string         `mapstructure:"commit-message"`
	StagePaths        []string       `mapstructure:"git-add"`
	PlaybookDirectory string         `mapstructure:"playbook-dir"`
	CreateBranch      bool           `mapstructure:"create-branch"`
	ExtraVariables    map[string]any `mapstructure:"extra-vars"`
	OpenPullRequest   bool           `mapstructure:"open-pull-request"`
	PullRequestBody   string         `mapstructure:"pull-request-body"`
}

// Organization names a repository owner and its repositories in declaration order.
type Organization struct {
	Name         string
	Repositories []string
}

// RepositoryReference identifies one repository of an organization.
type RepositoryReference struct {
	Organization string
	Repository   string
}

// String renders the reference as org/repo.
func (reference RepositoryReference) String() string {
	return reference.Organization + "/" + reference.Repository
}

// RepositoryReferences flattens the organizations into ordered repository references.
func (configuration Configuration) RepositoryReferences() []RepositoryReference {
	references := make([]RepositoryReference, 0)
	for _, organization := range configuration.Organizations {
		for _, repository := range organization.Repositories {
			references = append(references, RepositoryReference{Organization: organization.Name, Repository: repository})
		}
	}
	return references
}

// PullRequestDescription returns the configured pull request body, falling back to the commit message.
func (general GeneralSection) PullRequestDescription() string {
	if len(general.PullRequestBody) > 0 {
		return general.PullRequestBody
	}
	return general.CommitMessage
}
