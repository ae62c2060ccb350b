package contract

import (
	"encoding/json"
	"fmt"

	"github.com/ericfisherdev/covlens/internal/schema"
)

// Comparison union tags. Bundle comparisons share the Missing* and
// FirstPullRequest tags with coverage comparisons.
const (
	TypeComparison               = "Comparison"
	TypeBundleAnalysisComparison = "BundleAnalysisComparison"
	TypeFirstPullRequest         = "FirstPullRequest"
	TypeMissingBaseCommit        = "MissingBaseCommit"
	TypeMissingBaseReport        = "MissingBaseReport"
	TypeMissingComparison        = "MissingComparison"
	TypeMissingHeadCommit        = "MissingHeadCommit"
	TypeMissingHeadReport        = "MissingHeadReport"
	TypeBundleAnalysisReport     = "BundleAnalysisReport"
)

const commitPageQuery = `query CommitPageData($owner: String!, $repo: String!, $commitId: String!) {
  owner(username: $owner) {
    isCurrentUserPartOfOrg
    repository(name: $repo) {
      __typename
      ... on Repository {
        private
        bundleAnalysisEnabled
        coverageEnabled
        commit(id: $commitId) {
          commitid
          compareWithParent {
            __typename
            ... on Comparison {
              patchTotals {
                missesCount
                partialsCount
                percentCovered
              }
            }
            ... on FirstPullRequest { message }
            ... on MissingBaseCommit { message }
            ... on MissingBaseReport { message }
            ... on MissingComparison { message }
            ... on MissingHeadCommit { message }
            ... on MissingHeadReport { message }
          }
          bundleAnalysis {
            bundleAnalysisReport {
              __typename
              ... on BundleAnalysisReport { isCached }
              ... on MissingHeadReport { message }
            }
            bundleAnalysisCompareWithParent {
              __typename
              ... on BundleAnalysisComparison {
                bundleChange {
                  size { uncompress }
                }
              }
              ... on FirstPullRequest { message }
              ... on MissingBaseCommit { message }
              ... on MissingBaseReport { message }
              ... on MissingHeadCommit { message }
              ... on MissingHeadReport { message }
            }
          }
        }
      }
      ... on NotFoundError { message }
      ... on OwnerNotActivatedError { message }
    }
  }
}`

var missingTags = []string{
	TypeFirstPullRequest,
	TypeMissingBaseCommit,
	TypeMissingBaseReport,
	TypeMissingComparison,
	TypeMissingHeadCommit,
	TypeMissingHeadReport,
}

var bundleMissingTags = []string{
	TypeFirstPullRequest,
	TypeMissingBaseCommit,
	TypeMissingBaseReport,
	TypeMissingHeadCommit,
	TypeMissingHeadReport,
}

func messageVariants(tags []string) []schema.Variant {
	variants := make([]schema.Variant, 0, len(tags))
	for _, tag := range tags {
		variants = append(variants, schema.Tag(tag, schema.Req("message", schema.String())))
	}
	return variants
}

var compareWithParentNode = schema.Union(append([]schema.Variant{
	schema.Tag(TypeComparison,
		schema.Req("patchTotals", schema.Object(
			schema.Req("missesCount", schema.Integer().Nullable()),
			schema.Req("partialsCount", schema.Integer().Nullable()),
			schema.Req("percentCovered", schema.Number().Nullable()),
		).Nullable()),
	),
}, messageVariants(missingTags)...)...).Nullable()

var bundleAnalysisNode = schema.Object(
	schema.Req("bundleAnalysisReport", schema.Union(
		schema.Tag(TypeBundleAnalysisReport, schema.Req("isCached", schema.Bool())),
		schema.Tag(TypeMissingHeadReport, schema.Req("message", schema.String())),
	).Nullable()),
	schema.Req("bundleAnalysisCompareWithParent", schema.Union(append([]schema.Variant{
		schema.Tag(TypeBundleAnalysisComparison,
			schema.Req("bundleChange", schema.Object(
				schema.Req("size", schema.Object(
					schema.Req("uncompress", schema.Integer()),
				)),
			)),
		),
	}, messageVariants(bundleMissingTags)...)...).Nullable()),
).Nullable()

// CommitPageData backs the commit page header: repository settings plus the
// coverage and bundle comparisons of one commit against its parent.
var CommitPageData = Contract{
	Name:     "CommitPageData",
	Document: commitPageQuery,
	Node: repositoryContract(
		schema.Req("private", schema.Bool()),
		schema.Req("bundleAnalysisEnabled", schema.Bool()),
		schema.Req("coverageEnabled", schema.Bool()),
		schema.Req("commit", schema.Object(
			schema.Req("commitid", schema.String()),
			schema.Req("compareWithParent", compareWithParentNode),
			schema.Req("bundleAnalysis", bundleAnalysisNode),
		).Nullable()),
	),
}

// CommitPageResponse is the decoded CommitPageData response.
type CommitPageResponse = Response[CommitPageRepository]

// CommitPageRepository holds the Repository variant fields of CommitPageData.
type CommitPageRepository struct {
	Private               bool        `json:"private"`
	BundleAnalysisEnabled bool        `json:"bundleAnalysisEnabled"`
	CoverageEnabled       bool        `json:"coverageEnabled"`
	Commit                *PageCommit `json:"commit"`
}

// PageCommit is the commit selection of CommitPageData.
type PageCommit struct {
	CommitID          string
	CompareWithParent ComparisonVariant
	BundleAnalysis    *BundleAnalysis
}

// UnmarshalJSON dispatches compareWithParent on __typename.
func (c *PageCommit) UnmarshalJSON(b []byte) error {
	var raw struct {
		CommitID          string          `json:"commitid"`
		CompareWithParent json.RawMessage `json:"compareWithParent"`
		BundleAnalysis    *BundleAnalysis `json:"bundleAnalysis"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	cmp, err := decodeUnion(raw.CompareWithParent, comparisonFactories(TypeComparison, missingTags))
	if err != nil {
		return fmt.Errorf("compareWithParent: %w", err)
	}

	c.CommitID = raw.CommitID
	c.CompareWithParent = cmp
	c.BundleAnalysis = raw.BundleAnalysis
	return nil
}

// ComparisonVariant is *Comparison, *BundleAnalysisComparison or
// *ComparisonUnavailable.
type ComparisonVariant interface {
	comparisonTypename() string
}

// Comparison is a computed coverage comparison.
type Comparison struct {
	PatchTotals *PatchTotals `json:"patchTotals"`
}

// PatchTotals are the coverage totals of the lines a commit changed.
type PatchTotals struct {
	MissesCount    *int     `json:"missesCount"`
	PartialsCount  *int     `json:"partialsCount"`
	PercentCovered *float64 `json:"percentCovered"`
}

// BundleAnalysisComparison is a computed bundle comparison.
type BundleAnalysisComparison struct {
	BundleChange struct {
		Size struct {
			Uncompress int64 `json:"uncompress"`
		} `json:"size"`
	} `json:"bundleChange"`
}

// ComparisonUnavailable is any variant explaining why no comparison exists.
// Typename holds the concrete tag, e.g. "MissingBaseReport".
type ComparisonUnavailable struct {
	Typename string `json:"__typename"`
	Message  string `json:"message"`
}

func (*Comparison) comparisonTypename() string               { return TypeComparison }
func (*BundleAnalysisComparison) comparisonTypename() string { return TypeBundleAnalysisComparison }
func (c *ComparisonUnavailable) comparisonTypename() string  { return c.Typename }

// ComparisonTypename returns the discriminant of v, or "" for nil.
func ComparisonTypename(v ComparisonVariant) string {
	if v == nil {
		return ""
	}
	return v.comparisonTypename()
}

func comparisonFactories(computed string, unavailable []string) map[string]func() ComparisonVariant {
	f := make(map[string]func() ComparisonVariant, len(unavailable)+1)
	switch computed {
	case TypeComparison:
		f[computed] = func() ComparisonVariant { return &Comparison{} }
	case TypeBundleAnalysisComparison:
		f[computed] = func() ComparisonVariant { return &BundleAnalysisComparison{} }
	}
	for _, tag := range unavailable {
		f[tag] = func() ComparisonVariant { return &ComparisonUnavailable{} }
	}
	return f
}

// BundleAnalysis is the bundle selection of a commit.
type BundleAnalysis struct {
	Report            BundleReportVariant
	CompareWithParent ComparisonVariant
}

// UnmarshalJSON dispatches both bundle unions on __typename.
func (a *BundleAnalysis) UnmarshalJSON(b []byte) error {
	var raw struct {
		Report            json.RawMessage `json:"bundleAnalysisReport"`
		CompareWithParent json.RawMessage `json:"bundleAnalysisCompareWithParent"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	report, err := decodeUnion(raw.Report, map[string]func() BundleReportVariant{
		TypeBundleAnalysisReport: func() BundleReportVariant { return &BundleReport{} },
		TypeMissingHeadReport:    func() BundleReportVariant { return &BundleReportMissing{} },
	})
	if err != nil {
		return fmt.Errorf("bundleAnalysisReport: %w", err)
	}

	cmp, err := decodeUnion(raw.CompareWithParent, comparisonFactories(TypeBundleAnalysisComparison, bundleMissingTags))
	if err != nil {
		return fmt.Errorf("bundleAnalysisCompareWithParent: %w", err)
	}

	a.Report = report
	a.CompareWithParent = cmp
	return nil
}

// BundleReportVariant is *BundleReport or *BundleReportMissing.
type BundleReportVariant interface {
	bundleReportTypename() string
}

// BundleReport is an uploaded bundle analysis report.
type BundleReport struct {
	IsCached bool `json:"isCached"`
}

// BundleReportMissing means the head commit has no bundle report.
type BundleReportMissing struct {
	Message string `json:"message"`
}

func (*BundleReport) bundleReportTypename() string        { return TypeBundleAnalysisReport }
func (*BundleReportMissing) bundleReportTypename() string { return TypeMissingHeadReport }
