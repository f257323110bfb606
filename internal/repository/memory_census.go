package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"samaj-census/internal/domain"

	"github.com/google/uuid"
)

// MemoryCensusRepository supports running without Postgres (dev mode) and
// backs the unit tests. Same invariants as the Postgres implementation.
type MemoryCensusRepository struct {
	mu       sync.RWMutex
	samaj    map[string]*domain.Samaj  // samajID -> samaj
	families map[string]*domain.Family // familyID -> family
	members  map[string]*domain.Member // memberID -> member
}

func NewMemoryCensusRepository() *MemoryCensusRepository {
	return &MemoryCensusRepository{
		samaj:    map[string]*domain.Samaj{},
		families: map[string]*domain.Family{},
		members:  map[string]*domain.Member{},
	}
}

var _ CensusRepository = (*MemoryCensusRepository)(nil)

func (r *MemoryCensusRepository) CommitMember(_ context.Context, answers domain.Answers, role domain.RoleContext) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	samajName := answers.Get("samaj")
	familyRole := answers.Get("family_role")
	isHead := familyRole == domain.RoleHead

	member, err := memberFromAnswers(answers, isHead)
	if err != nil {
		return nil, err
	}

	// All checks happen before any map mutation so a rejection leaves the
	// member set unchanged (the in-memory equivalent of a rollback).
	samaj := r.findSamajByName(samajName)

	var family *domain.Family
	if isHead {
		familyName := familyNameForHead(role.FamilyHeadName)
		if samaj != nil && r.findFamilyByName(samaj.SamajID, familyName) != nil {
			return nil, domain.NewBusinessError(domain.ErrCodeDuplicateFamily,
				fmt.Sprintf("A family for head '%s' is already registered in this Samaj. Please correct your family role or head name.", role.FamilyHeadName))
		}
	} else {
		if samaj == nil {
			return nil, headNotFound(role.FamilyHeadName, samajName)
		}
		head := r.findHeadByName(samaj.SamajID, role.FamilyHeadName)
		if head == nil {
			return nil, headNotFound(role.FamilyHeadName, samajName)
		}
		family = r.families[head.FamilyID]
		switch familyRole {
		case domain.RoleSpouse:
			if r.countRole(family.FamilyID, domain.RoleSpouse) >= 1 {
				return nil, domain.NewBusinessError(domain.ErrCodeDuplicateSpouse,
					"This family already has a spouse registered. Please correct your family role.")
			}
		case domain.RoleParent:
			if r.countRole(family.FamilyID, domain.RoleParent) >= 2 {
				return nil, domain.NewBusinessError(domain.ErrCodeTooManyParents,
					"This family already has two parents registered. Please correct your family role.")
			}
		}
	}

	if samaj == nil {
		samaj = &domain.Samaj{
			SamajID:   uuid.NewString(),
			Name:      samajName,
			CreatedAt: time.Now().UTC(),
		}
		r.samaj[samaj.SamajID] = samaj
	}

	member.MemberID = uuid.NewString()
	member.SamajID = samaj.SamajID

	if isHead {
		family = &domain.Family{
			FamilyID:     uuid.NewString(),
			SamajID:      samaj.SamajID,
			Name:         familyNameForHead(role.FamilyHeadName),
			HeadMemberID: member.MemberID,
			CreatedAt:    time.Now().UTC(),
		}
		r.families[family.FamilyID] = family
	}
	member.FamilyID = family.FamilyID
	r.members[member.MemberID] = member

	return member, nil
}

func headNotFound(headName, samajName string) *domain.BusinessError {
	return domain.NewBusinessError(domain.ErrCodeHeadNotFound,
		fmt.Sprintf("We couldn't find a family head named '%s' in %s. Please correct the family head name.", headName, samajName))
}

func (r *MemoryCensusRepository) findSamajByName(name string) *domain.Samaj {
	for _, s := range r.samaj {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (r *MemoryCensusRepository) findFamilyByName(samajID, name string) *domain.Family {
	for _, f := range r.families {
		if f.SamajID == samajID && f.Name == name {
			return f
		}
	}
	return nil
}

func (r *MemoryCensusRepository) findHeadByName(samajID, name string) *domain.Member {
	for _, m := range r.members {
		if m.SamajID == samajID && m.Name == name && m.IsFamilyHead {
			return m
		}
	}
	return nil
}

func (r *MemoryCensusRepository) countRole(familyID, role string) int {
	n := 0
	for _, m := range r.members {
		if m.FamilyID == familyID && m.FamilyRole == role {
			n++
		}
	}
	return n
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (r *MemoryCensusRepository) ListMembers(_ context.Context, f MemberFilter) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Member
	for _, m := range r.members {
		samaj := r.samaj[m.SamajID]
		family := r.families[m.FamilyID]
		if f.SamajName != "" && (samaj == nil || !containsFold(samaj.Name, f.SamajName)) {
			continue
		}
		if f.FamilyName != "" && (family == nil || !containsFold(family.Name, f.FamilyName)) {
			continue
		}
		if f.Name != "" && !containsFold(m.Name, f.Name) {
			continue
		}
		if f.Role != "" && m.FamilyRole != f.Role {
			continue
		}
		if f.AgeMin != nil && m.Age < *f.AgeMin {
			continue
		}
		if f.AgeMax != nil && m.Age > *f.AgeMax {
			continue
		}
		if f.BloodGroup != "" && m.BloodGroup != f.BloodGroup {
			continue
		}
		if f.City != "" && !containsFold(m.CurrentCity, f.City) {
			continue
		}
		if f.Profession != "" && !containsFold(m.ProfessionCategory, f.Profession) {
			continue
		}
		if f.IsFamilyHead != nil && m.IsFamilyHead != *f.IsFamilyHead {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out, nil
}

func (r *MemoryCensusRepository) GetMember(_ context.Context, memberID string) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[memberID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (r *MemoryCensusRepository) ListSamaj(_ context.Context) ([]SamajSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SamajSummary
	for _, s := range r.samaj {
		sum := SamajSummary{SamajID: s.SamajID, Name: s.Name}
		for _, f := range r.families {
			if f.SamajID == s.SamajID {
				sum.FamilyCount++
			}
		}
		for _, m := range r.members {
			if m.SamajID == s.SamajID {
				sum.MemberCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryCensusRepository) ListFamilies(_ context.Context, samajName string) ([]FamilySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []FamilySummary
	for _, f := range r.families {
		samaj := r.samaj[f.SamajID]
		if samajName != "" && (samaj == nil || !containsFold(samaj.Name, samajName)) {
			continue
		}
		sum := FamilySummary{
			FamilyID:  f.FamilyID,
			Name:      f.Name,
			CreatedAt: f.CreatedAt,
		}
		if samaj != nil {
			sum.SamajName = samaj.Name
		}
		if head, ok := r.members[f.HeadMemberID]; ok {
			sum.HeadName = head.Name
		}
		for _, m := range r.members {
			if m.FamilyID == f.FamilyID {
				sum.MemberCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SamajName != out[j].SamajName {
			return out[i].SamajName < out[j].SamajName
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryCensusRepository) Analytics(_ context.Context) (*Analytics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := &Analytics{
		BySamaj:         map[string]int{},
		ByGender:        map[string]int{},
		ByAgeBucket:     map[string]int{},
		ByMaritalStatus: map[string]int{},
		ByProfession:    map[string]int{},
	}
	for _, m := range r.members {
		a.TotalMembers++
		if s, ok := r.samaj[m.SamajID]; ok {
			a.BySamaj[s.Name]++
		}
		a.ByGender[m.Gender]++
		a.ByAgeBucket[AgeBucket(m.Age)]++
		a.ByMaritalStatus[m.MaritalStatus]++
		a.ByProfession[m.ProfessionCategory]++
	}
	return a, nil
}
