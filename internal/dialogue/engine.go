package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"samaj-census/internal/domain"
)

// Fixed reply texts outside the schedule prompts.
const (
	welcomeMessage   = "Welcome to Family & Samaj Data Collection Bot!"
	noSessionMessage = "Please send 'Start' to begin the data collection process."
	reviewFooter     = "Reply 'Yes' to confirm or 'No' to correct a field."
	notProvided      = "Not provided"
)

// Outcome is the result of feeding one inbound message to the engine.
//   - Reply is always set and must be delivered to the respondent.
//   - Session is the state to persist; nil means no session should exist
//     afterwards (none was created, or the caller destroys it on commit).
//   - Commit is true when the respondent confirmed the review: the caller
//     must hand Session.Answers + Session.Role to the persistence adapter,
//     and only destroy the session if the commit succeeds.
type Outcome struct {
	Reply   string
	Session *domain.Session
	Commit  bool
}

// Engine drives the step-indexed census dialogue. It is a pure function of
// (current session, inbound message): no I/O, no clock beyond session
// creation, no logging. All side effects belong to the caller.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Handle consumes one inbound message. sess may be nil (no active session).
func (e *Engine) Handle(sess *domain.Session, phone, text string) Outcome {
	msg := strings.TrimSpace(text)

	// "start" always wins: implicit cancel-and-restart at any step.
	if strings.EqualFold(msg, "start") {
		next := domain.NewSession(phone)
		return Outcome{
			Reply:   welcomeMessage + "\n" + Schedule[0].Prompt,
			Session: next,
		}
	}

	if sess == nil {
		return Outcome{Reply: noSessionMessage}
	}

	switch sess.Step.Kind {
	case domain.StepOrdinary:
		return e.handleOrdinary(sess, msg)
	case domain.StepReview:
		return e.handleReview(sess, msg)
	case domain.StepCorrectSelect:
		return e.handleCorrectSelect(sess, msg)
	case domain.StepCorrectApply:
		return e.handleCorrectApply(sess, msg)
	default:
		// Unknown step state: treat as review rather than crash.
		sess.Step = domain.Step{Kind: domain.StepReview}
		return Outcome{Reply: e.renderReview(sess), Session: sess}
	}
}

func (e *Engine) handleOrdinary(sess *domain.Session, msg string) Outcome {
	idx := sess.Step.Index
	if idx < 0 || idx >= len(Schedule) {
		// Defensive only: an index past the schedule behaves as review.
		sess.Step = domain.Step{Kind: domain.StepReview}
		return Outcome{Reply: e.renderReview(sess), Session: sess}
	}

	field := Schedule[idx].Field
	ok, result := Validate(field, msg)
	if !ok {
		// Idempotent re-prompt: step unchanged.
		return Outcome{Reply: result, Session: sess}
	}

	e.storeAnswer(sess, field, msg, result)

	sess.Step = domain.Ordinary(idx + 1)
	if sess.Step.Index >= len(Schedule) {
		sess.Step = domain.Step{Kind: domain.StepReview}
		return Outcome{Reply: e.renderReview(sess), Session: sess}
	}
	return Outcome{Reply: e.promptFor(sess.Step.Index, sess), Session: sess}
}

// storeAnswer records a validated value (or an explicit skip) and maintains
// the role-resolution context for the family_role/family_head steps.
func (e *Engine) storeAnswer(sess *domain.Session, field, raw, normalized string) {
	if IsOptional(field) && IsSkipToken(raw) {
		sess.Answers.Skip(field)
		return
	}
	sess.Answers.Set(field, normalized)

	switch field {
	case "family_role":
		if normalized == domain.RoleHead {
			sess.Role.IsNewFamily = true
			// Head's own name doubles as the family head name by default.
			sess.Role.FamilyHeadName = sess.Answers.Get("name")
		} else {
			sess.Role.IsNewFamily = false
			sess.Role.FamilyHeadName = sess.Answers.Get("family_head")
		}
	case "family_head":
		sess.Role.FamilyHeadName = normalized
	}
}

// promptFor returns the question for a schedule index, branching the
// family_head prompt on the already-collected family role.
func (e *Engine) promptFor(idx int, sess *domain.Session) string {
	step := Schedule[idx]
	if step.Field == "family_head" && sess.Answers.Get("family_role") == domain.RoleHead {
		return "Please confirm your name as the family head:"
	}
	return step.Prompt
}

func (e *Engine) handleReview(sess *domain.Session, msg string) Outcome {
	switch {
	case strings.EqualFold(msg, "yes"):
		// Confirm collapses into the review step: the caller commits now.
		return Outcome{Reply: "", Session: sess, Commit: true}
	case strings.EqualFold(msg, "no"):
		sess.Step = domain.Step{Kind: domain.StepCorrectSelect}
		return Outcome{Reply: e.renderCorrectionMenu(sess), Session: sess}
	default:
		return Outcome{Reply: "Please reply 'Yes' to confirm or 'No' to correct a field.", Session: sess}
	}
}

func (e *Engine) handleCorrectSelect(sess *domain.Session, msg string) Outcome {
	fields := e.collectedFields(sess)
	n, err := strconv.Atoi(strings.TrimSpace(msg))
	if err != nil || n < 1 || n > len(fields) {
		return Outcome{
			Reply:   fmt.Sprintf("Please enter a number between 1 and %d.", len(fields)),
			Session: sess,
		}
	}
	field := fields[n-1]
	sess.Role.CorrectionTarget = field
	sess.Step = domain.Step{Kind: domain.StepCorrectApply}
	return Outcome{
		Reply:   fmt.Sprintf("Please enter a new value for %s:", DisplayName(field)),
		Session: sess,
	}
}

func (e *Engine) handleCorrectApply(sess *domain.Session, msg string) Outcome {
	field := sess.Role.CorrectionTarget
	ok, result := Validate(field, msg)
	if !ok {
		return Outcome{Reply: result, Session: sess}
	}
	e.storeAnswer(sess, field, msg, result)
	sess.Role.CorrectionTarget = ""
	sess.Step = domain.Step{Kind: domain.StepReview}
	return Outcome{Reply: e.renderReview(sess), Session: sess}
}

// collectedFields returns the answered fields in schedule order.
func (e *Engine) collectedFields(sess *domain.Session) []string {
	fields := make([]string, 0, len(sess.Answers))
	for _, step := range Schedule {
		if _, ok := sess.Answers[step.Field]; ok {
			fields = append(fields, step.Field)
		}
	}
	return fields
}

// renderReview builds the full listing of collected answers plus the
// Yes/No confirmation footer.
func (e *Engine) renderReview(sess *domain.Session) string {
	var b strings.Builder
	b.WriteString("Please review your information:\n")
	for i, field := range e.collectedFields(sess) {
		value := sess.Answers.Get(field)
		if value == "" {
			value = notProvided
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, DisplayName(field), value)
	}
	b.WriteString(reviewFooter)
	return b.String()
}

// renderCorrectionMenu builds the 1-indexed field picker.
func (e *Engine) renderCorrectionMenu(sess *domain.Session) string {
	var b strings.Builder
	b.WriteString("Which field would you like to correct? Reply with its number:\n")
	for i, field := range e.collectedFields(sess) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, DisplayName(field))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ThankYouMessage is the role-specific closing reply after a successful
// commit.
func ThankYouMessage(familyRole string) string {
	if familyRole == domain.RoleHead {
		return "Thank you for providing your information! Your family has been registered and your data has been saved."
	}
	return "Thank you for providing your information! Your data has been added to your family's record."
}
