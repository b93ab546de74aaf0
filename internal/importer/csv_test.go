package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
)

func setupImporter(t *testing.T) (*Importer, *database.Repository, *database.Agency) {
	t.Helper()

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	agency := database.NewAgency("Harbor Insurance Group")
	require.NoError(t, repo.CreateAgency(agency))

	return NewImporter(repo), repo, agency
}

const validCSV = `name,email,tenure_months,product_count,retention_score,engagement,claims_satisfied,nps
Alice Zhang,alice@example.com,72,4,0.95,high,yes,60
Bob Moore,bob@example.com,8,1,0.60,low,,
Carol Diaz,,30,2,0.82,medium,no,-10
`

func TestImportValidFile(t *testing.T) {
	imp, repo, agency := setupImporter(t)

	result, err := imp.Import(agency.ID, strings.NewReader(validCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Accepted)
	assert.Equal(t, 0, result.Rejected)
	assert.Empty(t, result.Errors)

	customers, err := repo.ListCustomers(agency.ID)
	require.NoError(t, err)
	require.Len(t, customers, 3)

	alice := customers[0]
	assert.Equal(t, "Alice Zhang", alice.Name)
	assert.Equal(t, 72, alice.TenureMonths)
	assert.Equal(t, 4, alice.ProductCount)
	assert.InDelta(t, 0.95, alice.RetentionScore, 1e-9)
	require.NotNil(t, alice.ClaimsSatisfied)
	assert.True(t, *alice.ClaimsSatisfied)
	require.NotNil(t, alice.NPS)
	assert.Equal(t, 60, *alice.NPS)

	// Empty optional cells stay nil so scoring uses the neutral fallback.
	bob := customers[1]
	assert.Nil(t, bob.ClaimsSatisfied)
	assert.Nil(t, bob.NPS)
}

func TestImportRejectsBadRowsKeepsGoodOnes(t *testing.T) {
	imp, repo, agency := setupImporter(t)

	csv := `name,tenure_months,product_count,retention_score,engagement
Good Row,24,2,0.8,medium
,12,1,0.5,low
Bad Tenure,minus,1,0.5,low
Bad Retention,12,1,1.5,low
Bad Engagement,12,1,0.5,sometimes
`

	result, err := imp.Import(agency.ID, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 4, result.Rejected)
	require.Len(t, result.Errors, 4)

	// Line numbers count from the header.
	assert.Equal(t, 3, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Message, "name")
	assert.Contains(t, result.Errors[1].Message, "tenure_months")
	assert.Contains(t, result.Errors[2].Message, "retention_score")
	assert.Contains(t, result.Errors[3].Message, "engagement")

	customers, err := repo.ListCustomers(agency.ID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Good Row", customers[0].Name)
}

func TestImportMissingColumns(t *testing.T) {
	imp, _, agency := setupImporter(t)

	_, err := imp.Import(agency.ID, strings.NewReader("name,email\nAlice,alice@example.com\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.ToAppError(err).Category)
}

func TestImportEmptyFile(t *testing.T) {
	imp, _, agency := setupImporter(t)

	_, err := imp.Import(agency.ID, strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.ToAppError(err).Category)
}

func TestImportHeaderCaseInsensitive(t *testing.T) {
	imp, _, agency := setupImporter(t)

	csv := "Name,Tenure_Months,Product_Count,Retention_Score,Engagement\nAlice,24,2,0.8,HIGH\n"
	result, err := imp.Import(agency.ID, strings.NewReader(csv))
	require.NoError(t, err)

	// Engagement values are lowercased too.
	assert.Equal(t, 1, result.Accepted)
}

func TestImportNPSBounds(t *testing.T) {
	imp, _, agency := setupImporter(t)

	csv := `name,tenure_months,product_count,retention_score,engagement,nps
In Range,12,1,0.5,low,-100
Out Of Range,12,1,0.5,low,150
`
	result, err := imp.Import(agency.ID, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Rejected)
	assert.Contains(t, result.Errors[0].Message, "nps")
}
