package domain

import "time"

// Samaj 领域模型（对应 samaj 表）
// Top-level community grouping; owns its families and members.
type Samaj struct {
	SamajID   string    `db:"samaj_id"`   // UUID, PRIMARY KEY
	Name      string    `db:"name"`       // VARCHAR(200), NOT NULL, UNIQUE
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}

// Family 领域模型（对应 families 表）
// A household within a Samaj. Exactly one head member, at most one spouse,
// at most two parents.
type Family struct {
	FamilyID     string    `db:"family_id"`      // UUID, PRIMARY KEY
	SamajID      string    `db:"samaj_id"`       // UUID, NOT NULL, FK samaj
	Name         string    `db:"name"`           // VARCHAR(200), NOT NULL, UNIQUE(samaj_id, name)
	HeadMemberID string    `db:"head_member_id"` // UUID, nullable until the head row exists
	CreatedAt    time.Time `db:"created_at"`     // TIMESTAMPTZ, NOT NULL
}

// Member 领域模型（对应 members 表）
// One respondent's full demographic record. samaj_id is carried redundantly
// for query convenience (members are always reachable via their family).
type Member struct {
	MemberID string `db:"member_id"` // UUID, PRIMARY KEY
	SamajID  string `db:"samaj_id"`  // UUID, NOT NULL, FK samaj
	FamilyID string `db:"family_id"` // UUID, NOT NULL, FK families

	Name       string  `db:"name"`        // VARCHAR(200), NOT NULL
	Gender     string  `db:"gender"`      // VARCHAR(20), NOT NULL
	Age        int     `db:"age"`         // INTEGER, NOT NULL, 0..120
	BloodGroup string  `db:"blood_group"` // VARCHAR(5), NOT NULL
	Mobile1    string  `db:"mobile_1"`    // VARCHAR(10), NOT NULL
	Mobile2    *string `db:"mobile_2"`    // VARCHAR(10), nullable (skippable)

	Education     string `db:"education"`      // TEXT, NOT NULL
	Occupation    string `db:"occupation"`     // TEXT, NOT NULL
	MaritalStatus string `db:"marital_status"` // VARCHAR(20), NOT NULL
	Address       string `db:"address"`        // TEXT, NOT NULL
	Email         string `db:"email"`          // VARCHAR(200), NOT NULL

	BirthDate       string  `db:"birth_date"`       // VARCHAR(10), DD/MM/YYYY
	AnniversaryDate *string `db:"anniversary_date"` // VARCHAR(10), nullable (skippable)

	NativePlace    string `db:"native_place"`    // TEXT, NOT NULL
	CurrentCity    string `db:"current_city"`    // TEXT, NOT NULL
	LanguagesKnown string `db:"languages_known"` // TEXT, NOT NULL, comma-separated
	Skills         string `db:"skills"`          // TEXT, NOT NULL, comma-separated
	Hobbies        string `db:"hobbies"`         // TEXT, NOT NULL, comma-separated

	EmergencyContact   string `db:"emergency_contact"`   // VARCHAR(10), NOT NULL
	RelationshipStatus string `db:"relationship_status"` // VARCHAR(20), NOT NULL
	FamilyRole         string `db:"family_role"`         // VARCHAR(20), NOT NULL (Head/Spouse/Child/Parent/Sibling/Other)

	MedicalConditions  *string `db:"medical_conditions"`   // TEXT, nullable (skippable)
	DietaryPreferences string  `db:"dietary_preferences"`  // TEXT, NOT NULL
	SocialMediaHandles *string `db:"social_media_handles"` // TEXT, nullable (skippable)
	ProfessionCategory string  `db:"profession_category"`  // TEXT, NOT NULL
	VolunteerInterests *string `db:"volunteer_interests"`  // TEXT, nullable (skippable)

	IsFamilyHead bool      `db:"is_family_head"` // BOOLEAN, NOT NULL, exactly one true per family
	CreatedAt    time.Time `db:"created_at"`     // TIMESTAMPTZ, NOT NULL
}

// Family roles accepted by the dialogue and enforced by the commit path.
const (
	RoleHead    = "Head"
	RoleSpouse  = "Spouse"
	RoleChild   = "Child"
	RoleParent  = "Parent"
	RoleSibling = "Sibling"
	RoleOther   = "Other"
)
