package contract

import "github.com/ericfisherdev/covlens/internal/schema"

// coverageAnalyticsSelection is shared by the commit, branch and pull file
// documents so the three stay field-for-field identical.
const coverageAnalyticsSelection = `coverageAnalytics {
        flagNames
        components { id name }
        coverageFile(path: $path, flags: $flags, components: $components) {
          hashedPath
          content
          coverage { line coverage }
          totals { percentCovered }
        }
      }`

const commitFileQuery = `query CoverageForCommitFile($owner: String!, $repo: String!, $ref: String!, $path: String!, $flags: [String], $components: [String]) {
  owner(username: $owner) {
    isCurrentUserPartOfOrg
    repository(name: $repo) {
      __typename
      ... on Repository {
        commit(id: $ref) {
      commitid
      ` + coverageAnalyticsSelection + `
        }
      }
      ... on NotFoundError { message }
      ... on OwnerNotActivatedError { message }
    }
  }
}`

const branchFileQuery = `query CoverageForBranchFile($owner: String!, $repo: String!, $ref: String!, $path: String!, $flags: [String], $components: [String]) {
  owner(username: $owner) {
    isCurrentUserPartOfOrg
    repository(name: $repo) {
      __typename
      ... on Repository {
        branch(name: $ref) {
          name
          head {
      commitid
      ` + coverageAnalyticsSelection + `
          }
        }
      }
      ... on NotFoundError { message }
      ... on OwnerNotActivatedError { message }
    }
  }
}`

const pullFileQuery = `query CoverageForPullFile($owner: String!, $repo: String!, $pullId: Int!, $path: String!, $flags: [String], $components: [String]) {
  owner(username: $owner) {
    isCurrentUserPartOfOrg
    repository(name: $repo) {
      __typename
      ... on Repository {
        pull(id: $pullId) {
          pullId
          head {
      commitid
      ` + coverageAnalyticsSelection + `
          }
        }
      }
      ... on NotFoundError { message }
      ... on OwnerNotActivatedError { message }
    }
  }
}`

// fileContainerNode is a commit carrying coverage analytics, whether reached
// directly or through a branch or pull head.
var fileContainerNode = schema.Object(
	schema.Req("commitid", schema.String()),
	schema.Req("coverageAnalytics", schema.Object(
		schema.Req("flagNames", schema.Array(schema.String()).Nullable()),
		schema.Req("components", schema.Array(schema.Object(
			schema.Req("id", schema.String()),
			schema.Req("name", schema.String()),
		)).Nullable()),
		schema.Req("coverageFile", schema.Object(
			schema.Opt("hashedPath", schema.String()),
			schema.Req("content", schema.String().Nullable()),
			schema.Req("coverage", schema.Array(schema.Object(
				schema.Req("line", schema.Integer().Nullable()),
				schema.Req("coverage", schema.Enum("H", "M", "P").Nullable()),
			)).Nullable()),
			schema.Req("totals", schema.Object(
				schema.Req("percentCovered", schema.Number().Nullable()),
			).Nullable()),
		).Nullable()),
	).Nullable()),
).Nullable()

// CoverageForCommitFile loads one file's line coverage at a commit.
var CoverageForCommitFile = Contract{
	Name:     "CoverageForCommitFile",
	Document: commitFileQuery,
	Node: repositoryContract(
		schema.Req("commit", fileContainerNode),
	),
}

// CoverageForBranchFile loads one file's line coverage at a branch head.
var CoverageForBranchFile = Contract{
	Name:     "CoverageForBranchFile",
	Document: branchFileQuery,
	Node: repositoryContract(
		schema.Req("branch", schema.Object(
			schema.Req("name", schema.String()),
			schema.Req("head", fileContainerNode),
		).Nullable()),
	),
}

// CoverageForPullFile loads one file's line coverage at a pull request head.
var CoverageForPullFile = Contract{
	Name:     "CoverageForPullFile",
	Document: pullFileQuery,
	Node: repositoryContract(
		schema.Req("pull", schema.Object(
			schema.Req("pullId", schema.Integer()),
			schema.Req("head", fileContainerNode),
		).Nullable()),
	),
}

// FileResponse is the decoded response of any CoverageFor*File contract.
type FileResponse = Response[FileRepository]

// FileRepository holds the Repository variant fields of the file contracts.
// Exactly one of Commit, Branch or Pull is selected by each document.
type FileRepository struct {
	Commit *FileContainer `json:"commit"`
	Branch *FileBranch    `json:"branch"`
	Pull   *FilePull      `json:"pull"`
}

// FileBranch is a branch and its head commit.
type FileBranch struct {
	Name string         `json:"name"`
	Head *FileContainer `json:"head"`
}

// FilePull is a pull request and its head commit.
type FilePull struct {
	PullID int            `json:"pullId"`
	Head   *FileContainer `json:"head"`
}

// FileContainer is a commit with its coverage analytics.
type FileContainer struct {
	CommitID          string             `json:"commitid"`
	CoverageAnalytics *CoverageAnalytics `json:"coverageAnalytics"`
}

// CoverageAnalytics is the coverage report of a commit.
type CoverageAnalytics struct {
	FlagNames    []string      `json:"flagNames"`
	Components   []Component   `json:"components"`
	CoverageFile *CoverageFile `json:"coverageFile"`
}

// Component is a named coverage component configured for the repository.
type Component struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CoverageFile is the coverage of a single file.
type CoverageFile struct {
	HashedPath *string        `json:"hashedPath"`
	Content    *string        `json:"content"`
	Coverage   []LineCoverage `json:"coverage"`
	Totals     *FileTotals    `json:"totals"`
}

// LineCoverage is the mark of one line. Line is nil for entries the report
// could not attribute to a line.
type LineCoverage struct {
	Line     *int    `json:"line"`
	Coverage *string `json:"coverage"`
}

// FileTotals are the aggregate totals of a file.
type FileTotals struct {
	PercentCovered *float64 `json:"percentCovered"`
}
