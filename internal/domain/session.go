package domain

import "time"

// StepKind 会话步骤类型
// Closed enum replacing overloaded step integers: an ordinary step carries a
// schedule index; the control steps drive the review/correct sub-flow.
type StepKind string

const (
	StepOrdinary      StepKind = "ordinary"
	StepReview        StepKind = "review"
	StepCorrectSelect StepKind = "correct_select"
	StepCorrectApply  StepKind = "correct_apply"
)

// Step identifies where a session is in the dialogue. Index is meaningful
// only when Kind == StepOrdinary.
type Step struct {
	Kind  StepKind `json:"kind"`
	Index int      `json:"index,omitempty"`
}

func Ordinary(index int) Step { return Step{Kind: StepOrdinary, Index: index} }

// Answers maps field name -> normalized value. A nil value means the
// respondent explicitly skipped an optional field ("Not provided").
type Answers map[string]*string

// Get returns the stored value or "" when absent/skipped.
func (a Answers) Get(field string) string {
	if v, ok := a[field]; ok && v != nil {
		return *v
	}
	return ""
}

// Set stores a provided value.
func (a Answers) Set(field, value string) {
	v := value
	a[field] = &v
}

// Skip stores an explicit skip marker for an optional field.
func (a Answers) Skip(field string) {
	a[field] = nil
}

// RoleContext 角色解析上下文
// Transient state used only during family-role resolution and correction.
type RoleContext struct {
	IsNewFamily      bool   `json:"is_new_family"`
	FamilyHeadName   string `json:"family_head_name"`
	CorrectionTarget string `json:"correction_target,omitempty"`
}

// Session 对话会话（每个手机号一条，仅在采集进行中存在）
// Serialized to JSON for the Redis-backed store.
type Session struct {
	Phone     string      `json:"phone"`
	Step      Step        `json:"step"`
	Answers   Answers     `json:"answers"`
	Role      RoleContext `json:"role_context"`
	StartedAt time.Time   `json:"started_at"`
}

// NewSession resets a respondent to the first question with empty answers.
func NewSession(phone string) *Session {
	return &Session{
		Phone:     phone,
		Step:      Ordinary(0),
		Answers:   Answers{},
		StartedAt: time.Now().UTC(),
	}
}
