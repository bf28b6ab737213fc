package gitrepo

import (
	"fmt"
	"strings"
)

const (
	// DefaultHostConstant is the git host used to build clone URLs.
	DefaultHostConstant           = "github.com"
	httpsCloneURLTemplateConstant = "https://%s/%s/%s.git"
)

// CloneURL builds the HTTPS clone URL for an organization repository.
func CloneURL(host string, organization string, repository string) string {
	trimmedHost := strings.Trim(strings.TrimSpace(host), "/")
	if len(trimmedHost) == 0 {
		trimmedHost = DefaultHostConstant
	}
	return fmt.Sprintf(httpsCloneURLTemplateConstant, trimmedHost, organization, repository)
}
