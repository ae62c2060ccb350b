package contract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/schema"
)

const commitPagePayload = `{
  "owner": {
    "isCurrentUserPartOfOrg": true,
    "repository": {
      "__typename": "Repository",
      "private": true,
      "bundleAnalysisEnabled": true,
      "coverageEnabled": true,
      "commit": {
        "commitid": "abc123",
        "compareWithParent": {
          "__typename": "Comparison",
          "patchTotals": {"missesCount": 1, "partialsCount": 0, "percentCovered": 80.5}
        },
        "bundleAnalysis": {
          "bundleAnalysisReport": {"__typename": "BundleAnalysisReport", "isCached": false},
          "bundleAnalysisCompareWithParent": {
            "__typename": "BundleAnalysisComparison",
            "bundleChange": {"size": {"uncompress": 10000}}
          }
        }
      }
    }
  }
}`

func TestCommitPageData_DecodesRepositoryVariant(t *testing.T) {
	resp, err := schema.Decode[contract.CommitPageResponse](contract.CommitPageData.Name, contract.CommitPageData.Node, []byte(commitPagePayload))
	require.NoError(t, err)
	require.NotNil(t, resp.Owner)
	assert.True(t, resp.Owner.IsCurrentUserPartOfOrg)

	repo, ok := resp.Owner.Repository.(*contract.Repository[contract.CommitPageRepository])
	require.True(t, ok, "expected Repository variant, got %T", resp.Owner.Repository)
	assert.True(t, repo.Data.Private)
	assert.True(t, repo.Data.BundleAnalysisEnabled)
	require.NotNil(t, repo.Data.Commit)
	assert.Equal(t, "abc123", repo.Data.Commit.CommitID)

	cmp, ok := repo.Data.Commit.CompareWithParent.(*contract.Comparison)
	require.True(t, ok)
	require.NotNil(t, cmp.PatchTotals)
	assert.Equal(t, 1, *cmp.PatchTotals.MissesCount)
	assert.Equal(t, 0, *cmp.PatchTotals.PartialsCount)
	assert.InDelta(t, 80.5, *cmp.PatchTotals.PercentCovered, 0.001)

	bundle := repo.Data.Commit.BundleAnalysis
	require.NotNil(t, bundle)
	report, ok := bundle.Report.(*contract.BundleReport)
	require.True(t, ok)
	assert.False(t, report.IsCached)

	bcmp, ok := bundle.CompareWithParent.(*contract.BundleAnalysisComparison)
	require.True(t, ok)
	assert.Equal(t, int64(10000), bcmp.BundleChange.Size.Uncompress)
}

func TestCommitPageData_DecodesUnavailableComparisons(t *testing.T) {
	payload := `{"owner":{"isCurrentUserPartOfOrg":false,"repository":{
	  "__typename":"Repository","private":false,"bundleAnalysisEnabled":false,"coverageEnabled":true,
	  "commit":{"commitid":"def","compareWithParent":{"__typename":"MissingBaseReport","message":"no base"},
	    "bundleAnalysis":{"bundleAnalysisReport":{"__typename":"MissingHeadReport","message":"missing"},
	      "bundleAnalysisCompareWithParent":{"__typename":"FirstPullRequest","message":"first"}}}}}}`

	resp, err := schema.Decode[contract.CommitPageResponse]("CommitPageData", contract.CommitPageData.Node, []byte(payload))
	require.NoError(t, err)

	repo := resp.Owner.Repository.(*contract.Repository[contract.CommitPageRepository])
	assert.Equal(t, contract.TypeMissingBaseReport, contract.ComparisonTypename(repo.Data.Commit.CompareWithParent))
	assert.Equal(t, contract.TypeFirstPullRequest, contract.ComparisonTypename(repo.Data.Commit.BundleAnalysis.CompareWithParent))

	_, isMissing := repo.Data.Commit.BundleAnalysis.Report.(*contract.BundleReportMissing)
	assert.True(t, isMissing)
}

func TestCommitPageData_DecodesErrorVariants(t *testing.T) {
	tests := []struct {
		typename string
		check    func(t *testing.T, v contract.RepositoryVariant)
	}{
		{contract.TypeNotFoundError, func(t *testing.T, v contract.RepositoryVariant) {
			nf, ok := v.(*contract.NotFoundError)
			require.True(t, ok)
			assert.Equal(t, "gone", nf.Message)
		}},
		{contract.TypeOwnerNotActivatedError, func(t *testing.T, v contract.RepositoryVariant) {
			_, ok := v.(*contract.OwnerNotActivatedError)
			require.True(t, ok)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.typename, func(t *testing.T) {
			payload := `{"owner":{"isCurrentUserPartOfOrg":false,"repository":{"__typename":"` + tt.typename + `","message":"gone"}}}`
			resp, err := schema.Decode[contract.CommitPageResponse]("CommitPageData", contract.CommitPageData.Node, []byte(payload))
			require.NoError(t, err)
			assert.Equal(t, tt.typename, contract.Typename(resp.Owner.Repository))
			tt.check(t, resp.Owner.Repository)
		})
	}
}

func TestCommitPageData_RejectsComparisonMissingPatchTotalsKey(t *testing.T) {
	payload := strings.Replace(commitPagePayload,
		`"patchTotals": {"missesCount": 1, "partialsCount": 0, "percentCovered": 80.5}`,
		`"unexpected": 1`, 1)

	_, err := schema.Decode[contract.CommitPageResponse]("CommitPageData", contract.CommitPageData.Node, []byte(payload))
	pe, ok := schema.AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "owner.repository.commit.compareWithParent.patchTotals", pe.Issues[0].Path)
}

func TestCoverageForBranchFile_Decodes(t *testing.T) {
	payload := `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
	  "branch":{"name":"main","head":{"commitid":"c1","coverageAnalytics":{
	    "flagNames":["unit"],"components":[{"id":"c","name":"core"}],
	    "coverageFile":{"hashedPath":"h","content":"x\ny","coverage":[{"line":1,"coverage":"H"},{"line":null,"coverage":"M"}],
	      "totals":{"percentCovered":50}}}}}}}}`

	resp, err := schema.Decode[contract.FileResponse]("CoverageForBranchFile", contract.CoverageForBranchFile.Node, []byte(payload))
	require.NoError(t, err)

	repo := resp.Owner.Repository.(*contract.Repository[contract.FileRepository])
	require.NotNil(t, repo.Data.Branch)
	assert.Nil(t, repo.Data.Commit)
	file := repo.Data.Branch.Head.CoverageAnalytics.CoverageFile
	require.NotNil(t, file)
	assert.Equal(t, "h", *file.HashedPath)
	require.Len(t, file.Coverage, 2)
	assert.Nil(t, file.Coverage[1].Line)
}

func TestCoverageForCommitFile_RejectsUnknownMark(t *testing.T) {
	payload := `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
	  "commit":{"commitid":"c1","coverageAnalytics":{"flagNames":null,"components":null,
	    "coverageFile":{"content":null,"coverage":[{"line":1,"coverage":"Z"}],"totals":null}}}}}}`

	_, err := schema.Decode[contract.FileResponse]("CoverageForCommitFile", contract.CoverageForCommitFile.Node, []byte(payload))
	pe, ok := schema.AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "owner.repository.commit.coverageAnalytics.coverageFile.coverage[0].coverage", pe.Issues[0].Path)
}

func TestPathContents_Decodes(t *testing.T) {
	payload := `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
	  "branch":{"head":{"pathContents":{"__typename":"PathContents","results":[
	    {"__typename":"PathContentDir","name":"src","path":"src","hits":3,"misses":1,"partials":0,"lines":4,"percentCovered":75},
	    {"__typename":"PathContentFile","name":"a.go","path":"a.go","hits":1,"misses":0,"partials":0,"lines":1,"percentCovered":null,"isCriticalFile":true}
	  ]}}}}}}`

	resp, err := schema.Decode[contract.PathContentsResponse]("PathContents", contract.PathContents.Node, []byte(payload))
	require.NoError(t, err)

	repo := resp.Owner.Repository.(*contract.Repository[contract.PathContentsRepository])
	listing, ok := repo.Data.Branch.Head.PathContents.(*contract.PathListing)
	require.True(t, ok)
	require.Len(t, listing.Results, 2)
	assert.Equal(t, contract.TypePathContentDir, listing.Results[0].Typename)
	assert.True(t, listing.Results[1].IsCriticalFile)
	assert.Nil(t, listing.Results[1].PercentCovered)
}

func TestPathContents_FileVariantRequiresCriticalFlag(t *testing.T) {
	payload := `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
	  "branch":{"head":{"pathContents":{"__typename":"PathContents","results":[
	    {"__typename":"PathContentFile","name":"a.go","path":"a.go","hits":1,"misses":0,"partials":0,"lines":1,"percentCovered":100}
	  ]}}}}}}`

	_, err := schema.Decode[contract.PathContentsResponse]("PathContents", contract.PathContents.Node, []byte(payload))
	pe, ok := schema.AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "owner.repository.branch.head.pathContents.results[0].isCriticalFile", pe.Issues[0].Path)
}

func TestDocumentsDeclareContractVariables(t *testing.T) {
	for _, c := range contract.All() {
		t.Run(c.Name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(c.Document, "query "+c.Name+"("), "document name must match contract name")
			assert.Contains(t, c.Document, "$owner: String!")
			assert.Contains(t, c.Document, "$repo: String!")
			assert.Contains(t, c.Document, "isCurrentUserPartOfOrg")

			_, registered := schema.Lookup(c.Name)
			assert.True(t, registered)
		})
	}
}
