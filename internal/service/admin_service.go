package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"samaj-census/internal/dialogue"
	"samaj-census/internal/domain"
	"samaj-census/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportHeader 成员导出固定表头（26 列，顺序固定）
var ExportHeader = []string{
	"Name", "Gender", "Age", "Blood Group", "Mobile 1", "Mobile 2",
	"Education", "Occupation", "Marital Status", "Address", "Email",
	"Birth Date", "Anniversary Date", "Native Place", "Current City",
	"Languages Known", "Skills", "Hobbies", "Emergency Contact",
	"Relationship Status", "Family Role", "Medical Conditions",
	"Dietary Preferences", "Social Media Handles", "Profession Category",
	"Volunteer Interests",
}

// ImportResult CSV 批量导入结果
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// AdminService 管理端查询/导出/导入/统计服务接口
type AdminService interface {
	ListMembers(ctx context.Context, f repository.MemberFilter) ([]domain.Member, error)
	GetMember(ctx context.Context, memberID string) (*domain.Member, error)
	ListSamaj(ctx context.Context) ([]repository.SamajSummary, error)
	ListFamilies(ctx context.Context, samajName string) ([]repository.FamilySummary, error)
	Analytics(ctx context.Context) (*repository.Analytics, error)

	// ExportCSV/ExportXLSX render the filtered member set in the fixed
	// 26-column schema, header row first.
	ExportCSV(ctx context.Context, f repository.MemberFilter) ([]byte, string, error)
	ExportXLSX(ctx context.Context, f repository.MemberFilter) ([]byte, string, error)

	// ImportCSV bulk-imports members for one samaj. Rows use the export
	// schema; a "Head" row opens a new family and subsequent non-head rows
	// attach to the most recent head above them.
	ImportCSV(ctx context.Context, samajName string, r io.Reader) (*ImportResult, error)
}

type adminService struct {
	repo   repository.CensusRepository
	logger *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(repo repository.CensusRepository, logger *zap.Logger) AdminService {
	return &adminService{repo: repo, logger: logger}
}

func (s *adminService) ListMembers(ctx context.Context, f repository.MemberFilter) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx, f)
}

func (s *adminService) GetMember(ctx context.Context, memberID string) (*domain.Member, error) {
	return s.repo.GetMember(ctx, memberID)
}

func (s *adminService) ListSamaj(ctx context.Context) ([]repository.SamajSummary, error) {
	return s.repo.ListSamaj(ctx)
}

func (s *adminService) ListFamilies(ctx context.Context, samajName string) ([]repository.FamilySummary, error) {
	return s.repo.ListFamilies(ctx, samajName)
}

func (s *adminService) Analytics(ctx context.Context) (*repository.Analytics, error) {
	return s.repo.Analytics(ctx)
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// exportRow flattens a member into the fixed column order.
func exportRow(m *domain.Member) []string {
	return []string{
		m.Name, m.Gender, fmt.Sprintf("%d", m.Age), m.BloodGroup,
		m.Mobile1, optional(m.Mobile2),
		m.Education, m.Occupation, m.MaritalStatus, m.Address, m.Email,
		m.BirthDate, optional(m.AnniversaryDate), m.NativePlace, m.CurrentCity,
		m.LanguagesKnown, m.Skills, m.Hobbies, m.EmergencyContact,
		m.RelationshipStatus, m.FamilyRole, optional(m.MedicalConditions),
		m.DietaryPreferences, optional(m.SocialMediaHandles),
		m.ProfessionCategory, optional(m.VolunteerInterests),
	}
}

func exportFilename(samajName, ext string) string {
	base := "all"
	if samajName != "" {
		base = strings.ReplaceAll(strings.ToLower(samajName), " ", "_")
	}
	return fmt.Sprintf("members_%s.%s", base, ext)
}

func (s *adminService) ExportCSV(ctx context.Context, f repository.MemberFilter) ([]byte, string, error) {
	members, err := s.repo.ListMembers(ctx, f)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportHeader); err != nil {
		return nil, "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range members {
		if err := w.Write(exportRow(&members[i])); err != nil {
			return nil, "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.logger.Info("Exported members CSV", zap.Int("member_count", len(members)))
	return buf.Bytes(), exportFilename(f.SamajName, "csv"), nil
}

func (s *adminService) ExportXLSX(ctx context.Context, f repository.MemberFilter) ([]byte, string, error) {
	members, err := s.repo.ListMembers(ctx, f)
	if err != nil {
		return nil, "", err
	}

	file := excelize.NewFile()
	// WriteToBuffer needs the file open, so no deferred Close on success.
	sheetName := "Members"
	index, err := file.NewSheet(sheetName)
	if err != nil {
		file.Close()
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}
	file.DeleteSheet("Sheet1")
	file.SetActiveSheet(index)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		file.Close()
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	for col, h := range ExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheetName, cell, h); err != nil {
			file.Close()
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
		_ = file.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	for rowIdx := range members {
		row := exportRow(&members[rowIdx])
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := file.SetCellValue(sheetName, cell, v); err != nil {
				file.Close()
				return nil, "", fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		file.Close()
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}
	file.Close()

	s.logger.Info("Exported members XLSX", zap.Int("member_count", len(members)))
	return buf.Bytes(), exportFilename(f.SamajName, "xlsx"), nil
}

// importFields maps export columns back onto dialogue field names, in the
// same fixed order as ExportHeader.
var importFields = []string{
	"name", "gender", "age", "blood_group", "mobile_1", "mobile_2",
	"education", "occupation", "marital_status", "address", "email",
	"birth_date", "anniversary_date", "native_place", "current_city",
	"languages_known", "skills", "hobbies", "emergency_contact",
	"relationship_status", "family_role", "medical_conditions",
	"dietary_preferences", "social_media_handles", "profession_category",
	"volunteer_interests",
}

func (s *adminService) ImportCSV(ctx context.Context, samajName string, r io.Reader) (*ImportResult, error) {
	if strings.TrimSpace(samajName) == "" {
		return nil, fmt.Errorf("samaj_name is required")
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(ExportHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(ExportHeader), len(header))
	}

	result := &ImportResult{}
	currentHead := ""
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}

		answers, rowErr := rowToAnswers(samajName, record)
		if rowErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, rowErr))
			continue
		}

		role := domain.RoleContext{}
		if answers.Get("family_role") == domain.RoleHead {
			role.IsNewFamily = true
			role.FamilyHeadName = answers.Get("name")
			currentHead = answers.Get("name")
		} else {
			if currentHead == "" {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: no preceding Head row to attach to", line))
				continue
			}
			role.FamilyHeadName = currentHead
		}
		answers.Set("family_head", role.FamilyHeadName)

		if _, err := s.repo.CommitMember(ctx, answers, role); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("Imported members CSV",
		zap.String("samaj", samajName),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// rowToAnswers validates one import row through the field validators and
// builds the answer set the commit path expects.
func rowToAnswers(samajName string, record []string) (domain.Answers, error) {
	if len(record) != len(importFields) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(importFields), len(record))
	}
	answers := domain.Answers{}
	answers.Set("samaj", samajName)
	for i, field := range importFields {
		raw := strings.TrimSpace(record[i])
		if raw == "" {
			if dialogue.IsOptional(field) {
				answers.Skip(field)
				continue
			}
			return nil, fmt.Errorf("%s is required", dialogue.DisplayName(field))
		}
		ok, value := dialogue.Validate(field, raw)
		if !ok {
			return nil, fmt.Errorf("%s: %s", dialogue.DisplayName(field), value)
		}
		answers.Set(field, value)
	}
	return answers, nil
}
