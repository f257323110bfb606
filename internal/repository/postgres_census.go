package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"samaj-census/internal/domain"

	"github.com/google/uuid"
)

// PostgresCensusRepository CensusRepository 的 PostgreSQL 实现
type PostgresCensusRepository struct {
	db *sql.DB
}

func NewPostgresCensusRepository(db *sql.DB) *PostgresCensusRepository {
	return &PostgresCensusRepository{db: db}
}

var _ CensusRepository = (*PostgresCensusRepository)(nil)

const memberColumns = `
	member_id::text,
	samaj_id::text,
	family_id::text,
	name,
	gender,
	age,
	blood_group,
	mobile_1,
	mobile_2,
	education,
	occupation,
	marital_status,
	address,
	email,
	birth_date,
	anniversary_date,
	native_place,
	current_city,
	languages_known,
	skills,
	hobbies,
	emergency_contact,
	relationship_status,
	family_role,
	medical_conditions,
	dietary_preferences,
	social_media_handles,
	profession_category,
	volunteer_interests,
	is_family_head,
	created_at
`

// CommitMember materializes a confirmed answer set inside one transaction.
// Role invariants (single head, single spouse, two parents) are checked here
// and violations roll the whole write back as business errors.
func (r *PostgresCensusRepository) CommitMember(ctx context.Context, answers domain.Answers, role domain.RoleContext) (*domain.Member, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	samajName := answers.Get("samaj")
	samajID, err := r.findOrCreateSamaj(ctx, tx, samajName)
	if err != nil {
		return nil, err
	}

	familyRole := answers.Get("family_role")
	isHead := familyRole == domain.RoleHead

	member, err := memberFromAnswers(answers, isHead)
	if err != nil {
		return nil, err
	}
	member.MemberID = uuid.NewString()
	member.SamajID = samajID

	if isHead {
		familyID, err := r.createFamily(ctx, tx, samajID, role.FamilyHeadName)
		if err != nil {
			return nil, err
		}
		member.FamilyID = familyID
	} else {
		familyID, err := r.resolveFamily(ctx, tx, samajID, samajName, role.FamilyHeadName, familyRole)
		if err != nil {
			return nil, err
		}
		member.FamilyID = familyID
	}

	if err := r.insertMember(ctx, tx, member); err != nil {
		return nil, err
	}

	if isHead {
		if _, err := tx.ExecContext(ctx,
			`UPDATE families SET head_member_id = $1 WHERE family_id = $2`,
			member.MemberID, member.FamilyID,
		); err != nil {
			return nil, fmt.Errorf("failed to set family head: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit member: %w", err)
	}
	return member, nil
}

func (r *PostgresCensusRepository) findOrCreateSamaj(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT samaj_id::text FROM samaj WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up samaj: %w", err)
	}

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO samaj (samaj_id, name, created_at) VALUES ($1, $2, NOW())`,
		id, name,
	); err != nil {
		return "", fmt.Errorf("failed to create samaj: %w", err)
	}
	return id, nil
}

func (r *PostgresCensusRepository) createFamily(ctx context.Context, tx *sql.Tx, samajID, headName string) (string, error) {
	familyName := familyNameForHead(headName)

	var existing string
	err := tx.QueryRowContext(ctx,
		`SELECT family_id::text FROM families WHERE samaj_id = $1 AND name = $2`,
		samajID, familyName,
	).Scan(&existing)
	if err == nil {
		return "", domain.NewBusinessError(domain.ErrCodeDuplicateFamily,
			fmt.Sprintf("A family for head '%s' is already registered in this Samaj. Please correct your family role or head name.", headName))
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up family: %w", err)
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO families (family_id, samaj_id, name, created_at) VALUES ($1, $2, $3, NOW())`,
		id, samajID, familyName,
	); err != nil {
		return "", fmt.Errorf("failed to create family: %w", err)
	}
	return id, nil
}

// resolveFamily finds the family of an existing head for non-head roles and
// enforces the spouse/parent limits before the insert.
func (r *PostgresCensusRepository) resolveFamily(ctx context.Context, tx *sql.Tx, samajID, samajName, headName, familyRole string) (string, error) {
	var familyID string
	err := tx.QueryRowContext(ctx,
		`SELECT family_id::text FROM members
		 WHERE samaj_id = $1 AND name = $2 AND is_family_head = TRUE`,
		samajID, headName,
	).Scan(&familyID)
	if err == sql.ErrNoRows {
		return "", domain.NewBusinessError(domain.ErrCodeHeadNotFound,
			fmt.Sprintf("We couldn't find a family head named '%s' in %s. Please correct the family head name.", headName, samajName))
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve family head: %w", err)
	}

	switch familyRole {
	case domain.RoleSpouse:
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM members WHERE family_id = $1 AND family_role = $2`,
			familyID, domain.RoleSpouse,
		).Scan(&count); err != nil {
			return "", fmt.Errorf("failed to count spouses: %w", err)
		}
		if count >= 1 {
			return "", domain.NewBusinessError(domain.ErrCodeDuplicateSpouse,
				"This family already has a spouse registered. Please correct your family role.")
		}
	case domain.RoleParent:
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM members WHERE family_id = $1 AND family_role = $2`,
			familyID, domain.RoleParent,
		).Scan(&count); err != nil {
			return "", fmt.Errorf("failed to count parents: %w", err)
		}
		if count >= 2 {
			return "", domain.NewBusinessError(domain.ErrCodeTooManyParents,
				"This family already has two parents registered. Please correct your family role.")
		}
	}
	return familyID, nil
}

func (r *PostgresCensusRepository) insertMember(ctx context.Context, tx *sql.Tx, m *domain.Member) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO members (
			member_id, samaj_id, family_id,
			name, gender, age, blood_group, mobile_1, mobile_2,
			education, occupation, marital_status, address, email,
			birth_date, anniversary_date, native_place, current_city,
			languages_known, skills, hobbies, emergency_contact,
			relationship_status, family_role, medical_conditions,
			dietary_preferences, social_media_handles, profession_category,
			volunteer_interests, is_family_head, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31
		)`,
		m.MemberID, m.SamajID, m.FamilyID,
		m.Name, m.Gender, m.Age, m.BloodGroup, m.Mobile1, m.Mobile2,
		m.Education, m.Occupation, m.MaritalStatus, m.Address, m.Email,
		m.BirthDate, m.AnniversaryDate, m.NativePlace, m.CurrentCity,
		m.LanguagesKnown, m.Skills, m.Hobbies, m.EmergencyContact,
		m.RelationshipStatus, m.FamilyRole, m.MedicalConditions,
		m.DietaryPreferences, m.SocialMediaHandles, m.ProfessionCategory,
		m.VolunteerInterests, m.IsFamilyHead, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// ListMembers applies the optional filters as one AND-combined WHERE clause.
func (r *PostgresCensusRepository) ListMembers(ctx context.Context, f MemberFilter) ([]domain.Member, error) {
	conds := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.SamajName != "" {
		conds = append(conds, fmt.Sprintf("s.name ILIKE '%%' || %s || '%%'", arg(f.SamajName)))
	}
	if f.FamilyName != "" {
		conds = append(conds, fmt.Sprintf("fam.name ILIKE '%%' || %s || '%%'", arg(f.FamilyName)))
	}
	if f.Name != "" {
		conds = append(conds, fmt.Sprintf("m.name ILIKE '%%' || %s || '%%'", arg(f.Name)))
	}
	if f.Role != "" {
		conds = append(conds, fmt.Sprintf("m.family_role = %s", arg(f.Role)))
	}
	if f.AgeMin != nil {
		conds = append(conds, fmt.Sprintf("m.age >= %s", arg(*f.AgeMin)))
	}
	if f.AgeMax != nil {
		conds = append(conds, fmt.Sprintf("m.age <= %s", arg(*f.AgeMax)))
	}
	if f.BloodGroup != "" {
		conds = append(conds, fmt.Sprintf("m.blood_group = %s", arg(f.BloodGroup)))
	}
	if f.City != "" {
		conds = append(conds, fmt.Sprintf("m.current_city ILIKE '%%' || %s || '%%'", arg(f.City)))
	}
	if f.Profession != "" {
		conds = append(conds, fmt.Sprintf("m.profession_category ILIKE '%%' || %s || '%%'", arg(f.Profession)))
	}
	if f.IsFamilyHead != nil {
		conds = append(conds, fmt.Sprintf("m.is_family_head = %s", arg(*f.IsFamilyHead)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM members m
		JOIN families fam ON fam.family_id = m.family_id
		JOIN samaj s ON s.samaj_id = m.samaj_id
		WHERE %s
		ORDER BY m.created_at, m.member_id`,
		prefixMemberColumns("m"), strings.Join(conds, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *PostgresCensusRepository) GetMember(ctx context.Context, memberID string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM members m WHERE m.member_id = $1`, prefixMemberColumns("m")),
		memberID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (r *PostgresCensusRepository) ListSamaj(ctx context.Context) ([]SamajSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.samaj_id::text, s.name,
			COUNT(DISTINCT f.family_id) AS family_count,
			COUNT(DISTINCT m.member_id) AS member_count
		FROM samaj s
		LEFT JOIN families f ON f.samaj_id = s.samaj_id
		LEFT JOIN members m ON m.samaj_id = s.samaj_id
		GROUP BY s.samaj_id, s.name
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list samaj: %w", err)
	}
	defer rows.Close()

	var out []SamajSummary
	for rows.Next() {
		var s SamajSummary
		if err := rows.Scan(&s.SamajID, &s.Name, &s.FamilyCount, &s.MemberCount); err != nil {
			return nil, fmt.Errorf("failed to scan samaj summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresCensusRepository) ListFamilies(ctx context.Context, samajName string) ([]FamilySummary, error) {
	conds := "1=1"
	args := []any{}
	if samajName != "" {
		conds = "s.name ILIKE '%' || $1 || '%'"
		args = append(args, samajName)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT f.family_id::text, f.name, s.name,
			COALESCE(h.name, '') AS head_name,
			COUNT(m.member_id) AS member_count,
			f.created_at
		FROM families f
		JOIN samaj s ON s.samaj_id = f.samaj_id
		LEFT JOIN members h ON h.member_id = f.head_member_id
		LEFT JOIN members m ON m.family_id = f.family_id
		WHERE %s
		GROUP BY f.family_id, f.name, s.name, h.name, f.created_at
		ORDER BY s.name, f.name`, conds), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var out []FamilySummary
	for rows.Next() {
		var f FamilySummary
		if err := rows.Scan(&f.FamilyID, &f.Name, &f.SamajName, &f.HeadName, &f.MemberCount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family summary: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresCensusRepository) Analytics(ctx context.Context) (*Analytics, error) {
	a := &Analytics{
		BySamaj:         map[string]int{},
		ByGender:        map[string]int{},
		ByAgeBucket:     map[string]int{},
		ByMaritalStatus: map[string]int{},
		ByProfession:    map[string]int{},
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&a.TotalMembers); err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	groupings := []struct {
		expr string
		dest map[string]int
	}{
		{`(SELECT s.name FROM samaj s WHERE s.samaj_id = m.samaj_id)`, a.BySamaj},
		{`m.gender`, a.ByGender},
		{`CASE WHEN m.age < 18 THEN '0-17' WHEN m.age <= 35 THEN '18-35' WHEN m.age <= 60 THEN '36-60' ELSE '60+' END`, a.ByAgeBucket},
		{`m.marital_status`, a.ByMaritalStatus},
		{`m.profession_category`, a.ByProfession},
	}
	for _, g := range groupings {
		rows, err := r.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s AS k, COUNT(*) FROM members m GROUP BY k`, g.expr))
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate members: %w", err)
		}
		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan aggregate: %w", err)
			}
			g.dest[key] = count
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return a, nil
}

// prefixMemberColumns qualifies memberColumns with a table alias.
func prefixMemberColumns(alias string) string {
	cols := strings.Split(memberColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*domain.Member, error) {
	var m domain.Member
	var mobile2, anniversary, medical, social, volunteer sql.NullString
	err := row.Scan(
		&m.MemberID,
		&m.SamajID,
		&m.FamilyID,
		&m.Name,
		&m.Gender,
		&m.Age,
		&m.BloodGroup,
		&m.Mobile1,
		&mobile2,
		&m.Education,
		&m.Occupation,
		&m.MaritalStatus,
		&m.Address,
		&m.Email,
		&m.BirthDate,
		&anniversary,
		&m.NativePlace,
		&m.CurrentCity,
		&m.LanguagesKnown,
		&m.Skills,
		&m.Hobbies,
		&m.EmergencyContact,
		&m.RelationshipStatus,
		&m.FamilyRole,
		&medical,
		&m.DietaryPreferences,
		&social,
		&m.ProfessionCategory,
		&volunteer,
		&m.IsFamilyHead,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mobile2.Valid {
		m.Mobile2 = &mobile2.String
	}
	if anniversary.Valid {
		m.AnniversaryDate = &anniversary.String
	}
	if medical.Valid {
		m.MedicalConditions = &medical.String
	}
	if social.Valid {
		m.SocialMediaHandles = &social.String
	}
	if volunteer.Valid {
		m.VolunteerInterests = &volunteer.String
	}
	return &m, nil
}
