package repository

import (
	"context"
	"fmt"
	"time"

	"samaj-census/internal/domain"
)

// MemberFilter 成员列表过滤条件（所有条件可选，AND 组合）
type MemberFilter struct {
	SamajName    string // ILIKE substring
	FamilyName   string // ILIKE substring
	Name         string // ILIKE substring
	Role         string // exact
	AgeMin       *int
	AgeMax       *int
	BloodGroup   string // exact
	City         string // ILIKE substring
	Profession   string // ILIKE substring
	IsFamilyHead *bool
}

// SamajSummary 社区汇总
type SamajSummary struct {
	SamajID     string `json:"id"`
	Name        string `json:"name"`
	FamilyCount int    `json:"family_count"`
	MemberCount int    `json:"member_count"`
}

// FamilySummary 家庭汇总
type FamilySummary struct {
	FamilyID    string    `json:"id"`
	Name        string    `json:"name"`
	SamajName   string    `json:"samaj"`
	HeadName    string    `json:"head_name"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Analytics 统计聚合
type Analytics struct {
	TotalMembers    int            `json:"total_members"`
	BySamaj         map[string]int `json:"by_samaj"`
	ByGender        map[string]int `json:"by_gender"`
	ByAgeBucket     map[string]int `json:"by_age_bucket"`
	ByMaritalStatus map[string]int `json:"by_marital_status"`
	ByProfession    map[string]int `json:"by_profession"`
}

// AgeBucket maps an age to the fixed analytics buckets.
func AgeBucket(age int) string {
	switch {
	case age < 18:
		return "0-17"
	case age <= 35:
		return "18-35"
	case age <= 60:
		return "36-60"
	default:
		return "60+"
	}
}

// CensusRepository 人口普查数据仓库
// CommitMember is the single write operation exposed to the dialogue side:
// it materializes a confirmed answer set into Samaj/Family/Member rows as
// one atomic transaction. Invariant violations return *domain.BusinessError
// and leave storage untouched; any other error is a storage fault.
type CensusRepository interface {
	CommitMember(ctx context.Context, answers domain.Answers, role domain.RoleContext) (*domain.Member, error)

	ListMembers(ctx context.Context, f MemberFilter) ([]domain.Member, error)
	GetMember(ctx context.Context, memberID string) (*domain.Member, error)
	ListSamaj(ctx context.Context) ([]SamajSummary, error)
	ListFamilies(ctx context.Context, samajName string) ([]FamilySummary, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

// familyNameForHead derives the family name created for a head member.
func familyNameForHead(headName string) string {
	return headName + "'s Family"
}

// memberFromAnswers builds a Member record from a confirmed answer set.
// IDs and ownership references are filled in by the repository.
func memberFromAnswers(answers domain.Answers, isHead bool) (*domain.Member, error) {
	age, err := parseAge(answers.Get("age"))
	if err != nil {
		return nil, err
	}
	m := &domain.Member{
		Name:               answers.Get("name"),
		Gender:             answers.Get("gender"),
		Age:                age,
		BloodGroup:         answers.Get("blood_group"),
		Mobile1:            answers.Get("mobile_1"),
		Mobile2:            answers["mobile_2"],
		Education:          answers.Get("education"),
		Occupation:         answers.Get("occupation"),
		MaritalStatus:      answers.Get("marital_status"),
		Address:            answers.Get("address"),
		Email:              answers.Get("email"),
		BirthDate:          answers.Get("birth_date"),
		AnniversaryDate:    answers["anniversary_date"],
		NativePlace:        answers.Get("native_place"),
		CurrentCity:        answers.Get("current_city"),
		LanguagesKnown:     answers.Get("languages_known"),
		Skills:             answers.Get("skills"),
		Hobbies:            answers.Get("hobbies"),
		EmergencyContact:   answers.Get("emergency_contact"),
		RelationshipStatus: answers.Get("relationship_status"),
		FamilyRole:         answers.Get("family_role"),
		MedicalConditions:  answers["medical_conditions"],
		DietaryPreferences: answers.Get("dietary_preferences"),
		SocialMediaHandles: answers["social_media_handles"],
		ProfessionCategory: answers.Get("profession_category"),
		VolunteerInterests: answers["volunteer_interests"],
		IsFamilyHead:       isHead,
		CreatedAt:          time.Now().UTC(),
	}
	return m, nil
}

func parseAge(s string) (int, error) {
	var age int
	if _, err := fmt.Sscanf(s, "%d", &age); err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	return age, nil
}
