package service

import (
	"context"
	"errors"
	"testing"

	"samaj-census/internal/dialogue"
	"samaj-census/internal/repository"
	"samaj-census/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, _, body string) error {
	if f.fail {
		return errors.New("twilio unreachable")
	}
	f.sent = append(f.sent, body)
	return nil
}

type fixture struct {
	svc      WhatsAppService
	sessions *store.MemorySessionStore
	repo     *repository.MemoryCensusRepository
	sender   *fakeSender
}

func newFixture() *fixture {
	f := &fixture{
		sessions: store.NewMemorySessionStore(0),
		repo:     repository.NewMemoryCensusRepository(),
		sender:   &fakeSender{},
	}
	f.svc = NewWhatsAppService(f.sessions, f.repo, f.sender, zap.NewNop())
	return f
}

func (f *fixture) send(t *testing.T, from, body string) string {
	t.Helper()
	reply, delivered, err := f.svc.HandleInbound(context.Background(), from, body)
	require.NoError(t, err)
	require.True(t, delivered)
	return reply
}

func inputsFor(name, role, head string) map[string]string {
	return map[string]string{
		"samaj":                "Lohana Samaj",
		"name":                 name,
		"family_role":          role,
		"family_head":          head,
		"gender":               "Female",
		"age":                  "40",
		"blood_group":          "O+",
		"mobile_1":             "9876543210",
		"mobile_2":             "skip",
		"education":            "B.A.",
		"occupation":           "Teacher",
		"marital_status":       "Married",
		"address":              "12 MG Road",
		"email":                "someone@example.com",
		"birth_date":           "15/08/1985",
		"anniversary_date":     "skip",
		"native_place":         "Rajkot",
		"current_city":         "Ahmedabad",
		"languages_known":      "Gujarati, Hindi",
		"skills":               "Teaching",
		"hobbies":              "Reading",
		"emergency_contact":    "9123456780",
		"relationship_status":  "Married",
		"medical_conditions":   "skip",
		"dietary_preferences":  "Vegetarian",
		"social_media_handles": "skip",
		"profession_category":  "Education",
		"volunteer_interests":  "skip",
	}
}

// runDialogue answers every question and stops at the review listing.
func (f *fixture) runDialogue(t *testing.T, phone string, inputs map[string]string) string {
	t.Helper()
	reply := f.send(t, phone, "Start")
	require.Contains(t, reply, "Welcome to Family & Samaj Data Collection Bot!")
	for _, step := range dialogue.Schedule {
		reply = f.send(t, phone, inputs[step.Field])
	}
	require.Contains(t, reply, "Please review your information:")
	return reply
}

func TestHeadRegistrationEndToEnd(t *testing.T) {
	f := newFixture()
	phone := "+919876543210"

	f.runDialogue(t, phone, inputsFor("Ramesh Patel", "Head", "Ramesh Patel"))
	reply := f.send(t, phone, "Yes")
	assert.Equal(t, "Thank you for providing your information! Your family has been registered and your data has been saved.", reply)

	// Session is destroyed after a successful commit.
	_, err := f.sessions.Get(context.Background(), phone)
	assert.Equal(t, store.ErrSessionNotFound, err)

	members, err := f.repo.ListMembers(context.Background(), repository.MemberFilter{})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].IsFamilyHead)
	assert.Equal(t, "Ramesh Patel", members[0].Name)
}

func TestRelativeJoinsExistingFamilyEndToEnd(t *testing.T) {
	f := newFixture()
	f.runDialogue(t, "+911111111111", inputsFor("Ramesh Patel", "Head", "Ramesh Patel"))
	f.send(t, "+911111111111", "Yes")

	f.runDialogue(t, "+912222222222", inputsFor("Sita Patel", "Spouse", "Ramesh Patel"))
	reply := f.send(t, "+912222222222", "Yes")
	assert.Equal(t, "Thank you for providing your information! Your data has been added to your family's record.", reply)

	members, err := f.repo.ListMembers(context.Background(), repository.MemberFilter{})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, members[0].FamilyID, members[1].FamilyID)
}

func TestBusinessErrorPreservesSession(t *testing.T) {
	f := newFixture()
	phone := "+913333333333"

	// No head registered, so the spouse commit is rejected.
	f.runDialogue(t, phone, inputsFor("Sita Patel", "Spouse", "Ramesh Patel"))
	reply := f.send(t, phone, "Yes")
	assert.Contains(t, reply, "We couldn't find a family head named 'Ramesh Patel' in Lohana Samaj.")
	assert.Contains(t, reply, "Reply 'Yes' to try again or 'No' to correct a field.")

	// The session survives, parked at review, so the respondent can correct.
	sess, err := f.sessions.Get(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, "Sita Patel", sess.Answers.Get("name"))

	reply = f.send(t, phone, "No")
	assert.Contains(t, reply, "Which field would you like to correct?")
}

func TestRetryAfterHeadRegistersSucceeds(t *testing.T) {
	f := newFixture()
	f.runDialogue(t, "+914444444444", inputsFor("Sita Patel", "Spouse", "Ramesh Patel"))
	reply := f.send(t, "+914444444444", "Yes")
	require.Contains(t, reply, "We couldn't find a family head")

	f.runDialogue(t, "+915555555555", inputsFor("Ramesh Patel", "Head", "Ramesh Patel"))
	f.send(t, "+915555555555", "Yes")

	reply = f.send(t, "+914444444444", "Yes")
	assert.Equal(t, "Thank you for providing your information! Your data has been added to your family's record.", reply)
}

func TestNoSessionMessage(t *testing.T) {
	f := newFixture()
	reply := f.send(t, "+916666666666", "hello")
	assert.Equal(t, "Please send 'Start' to begin the data collection process.", reply)

	// No session is created for a stray message.
	_, err := f.sessions.Get(context.Background(), "+916666666666")
	assert.Equal(t, store.ErrSessionNotFound, err)
}

func TestDeliveryFailureReportsUndelivered(t *testing.T) {
	f := newFixture()
	f.sender.fail = true

	reply, delivered, err := f.svc.HandleInbound(context.Background(), "+917777777777", "Start")
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Equal(t, "Failed to send response message", reply)

	// The engine step was applied before delivery, so the session exists.
	sess, err := f.sessions.Get(context.Background(), "+917777777777")
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+919876543210", NormalizePhone("whatsapp:+919876543210"))
	assert.Equal(t, "+919876543210", NormalizePhone("+919876543210"))
	assert.Equal(t, "+919876543210", NormalizePhone("919876543210"))
	assert.Equal(t, "", NormalizePhone("  "))
}
