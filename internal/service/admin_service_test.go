package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"samaj-census/internal/domain"
	"samaj-census/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func seedRepo(t *testing.T) *repository.MemoryCensusRepository {
	t.Helper()
	repo := repository.NewMemoryCensusRepository()

	commit := func(name, role, head string, isNew bool) {
		answers := domain.Answers{}
		for field, v := range inputsFor(name, role, head) {
			if v == "skip" {
				answers.Skip(field)
				continue
			}
			answers.Set(field, v)
		}
		_, err := repo.CommitMember(context.Background(), answers,
			domain.RoleContext{IsNewFamily: isNew, FamilyHeadName: head})
		require.NoError(t, err)
	}
	commit("Ramesh Patel", "Head", "Ramesh Patel", true)
	commit("Sita Patel", "Spouse", "Ramesh Patel", false)
	return repo
}

func TestExportCSVHeaderAndRows(t *testing.T) {
	admin := NewAdminService(seedRepo(t), zap.NewNop())

	data, filename, err := admin.ExportCSV(context.Background(), repository.MemberFilter{})
	require.NoError(t, err)
	assert.Equal(t, "members_all.csv", filename)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ExportHeader, records[0])

	// Rows follow insertion order; skipped optionals render empty.
	assert.Equal(t, "Ramesh Patel", records[1][0])
	assert.Equal(t, "Sita Patel", records[2][0])
	assert.Equal(t, "", records[1][5]) // Mobile 2 was skipped
	assert.Equal(t, "Head", records[1][20])
	assert.Equal(t, "Spouse", records[2][20])
}

func TestExportCSVFilenameFromFilter(t *testing.T) {
	admin := NewAdminService(seedRepo(t), zap.NewNop())

	_, filename, err := admin.ExportCSV(context.Background(), repository.MemberFilter{SamajName: "Lohana Samaj"})
	require.NoError(t, err)
	assert.Equal(t, "members_lohana_samaj.csv", filename)
}

func TestExportXLSX(t *testing.T) {
	admin := NewAdminService(seedRepo(t), zap.NewNop())

	data, filename, err := admin.ExportXLSX(context.Background(), repository.MemberFilter{})
	require.NoError(t, err)
	assert.Equal(t, "members_all.xlsx", filename)

	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Members")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportHeader[0], rows[0][0])
	assert.Equal(t, "Ramesh Patel", rows[1][0])
}

func importCSVBody(rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(ExportHeader)
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.String()
}

func importRow(name, role string) []string {
	return []string{
		name, "Male", "45", "B+", "9876543210", "",
		"B.Com", "Business", "Married", "12 MG Road", "test@example.com",
		"15/08/1980", "", "Rajkot", "Ahmedabad",
		"Gujarati", "Accounting", "Cricket", "9123456780",
		"Married", role, "",
		"Vegetarian", "", "Business",
		"",
	}
}

func TestImportCSVGroupsFamiliesByHeadRow(t *testing.T) {
	repo := repository.NewMemoryCensusRepository()
	admin := NewAdminService(repo, zap.NewNop())

	body := importCSVBody([][]string{
		importRow("Ramesh Patel", "Head"),
		importRow("Sita Patel", "Spouse"),
		importRow("Jay Shah", "Head"),
		importRow("Ria Shah", "Child"),
	})
	result, err := admin.ImportCSV(context.Background(), "Lohana Samaj", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Imported)
	assert.Equal(t, 0, result.Failed)

	families, err := repo.ListFamilies(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, families, 2)
	for _, fam := range families {
		assert.Equal(t, 2, fam.MemberCount)
	}
}

func TestImportCSVRecordsRowErrors(t *testing.T) {
	repo := repository.NewMemoryCensusRepository()
	admin := NewAdminService(repo, zap.NewNop())

	badAge := importRow("Ramesh Patel", "Head")
	badAge[2] = "two hundred"
	body := importCSVBody([][]string{
		importRow("Sita Patel", "Spouse"), // no preceding Head row
		badAge,
		importRow("Jay Shah", "Head"),
	})
	result, err := admin.ImportCSV(context.Background(), "Lohana Samaj", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "no preceding Head row")
	assert.Contains(t, result.Errors[1], "Age")
}

func TestImportCSVRejectsWrongColumnCount(t *testing.T) {
	admin := NewAdminService(repository.NewMemoryCensusRepository(), zap.NewNop())
	_, err := admin.ImportCSV(context.Background(), "Lohana Samaj", strings.NewReader("Name,Gender\n"))
	assert.Error(t, err)
}
