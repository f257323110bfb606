package dialogue

// QuestionStep 问卷中的一步：字段名 + 提问文本
type QuestionStep struct {
	Field   string
	Display string // human-readable name used in review listings and exports
	Prompt  string
}

// Schedule is the fixed, ordered question sequence. The family_head prompt is
// branched at runtime on the respondent's family role (see promptFor).
var Schedule = []QuestionStep{
	{"samaj", "Samaj", "Please enter your Samaj name:"},
	{"name", "Name", "Please enter your full name:"},
	{"family_role", "Family Role", "Please enter your family role (Head/Spouse/Child/Parent/Sibling/Other):"},
	{"family_head", "Family Head", "Please enter your family head's full name:"},
	{"gender", "Gender", "Please enter your gender (Male/Female/Other):"},
	{"age", "Age", "Please enter your age:"},
	{"blood_group", "Blood Group", "Please enter your blood group:"},
	{"mobile_1", "Mobile 1", "Please enter your primary mobile number:"},
	{"mobile_2", "Mobile 2", "Please enter your secondary mobile number (or type 'skip'):"},
	{"education", "Education", "Please enter your education:"},
	{"occupation", "Occupation", "Please enter your occupation:"},
	{"marital_status", "Marital Status", "Please enter your marital status (Single/Married/Divorced/Widowed):"},
	{"address", "Address", "Please enter your address:"},
	{"email", "Email", "Please enter your email:"},
	{"birth_date", "Birth Date", "Please enter your birth date (DD/MM/YYYY):"},
	{"anniversary_date", "Anniversary Date", "Please enter your anniversary date (DD/MM/YYYY or type 'skip'):"},
	{"native_place", "Native Place", "Please enter your native place:"},
	{"current_city", "Current City", "Please enter your current city:"},
	{"languages_known", "Languages Known", "Please enter languages known (comma-separated):"},
	{"skills", "Skills", "Please enter your skills (comma-separated):"},
	{"hobbies", "Hobbies", "Please enter your hobbies (comma-separated):"},
	{"emergency_contact", "Emergency Contact", "Please enter emergency contact number:"},
	{"relationship_status", "Relationship Status", "Please enter your relationship status:"},
	{"medical_conditions", "Medical Conditions", "Please enter any medical conditions (or type 'skip'):"},
	{"dietary_preferences", "Dietary Preferences", "Please enter dietary preferences:"},
	{"social_media_handles", "Social Media Handles", "Please enter social media handles (comma-separated or type 'skip'):"},
	{"profession_category", "Profession Category", "Please enter your profession category:"},
	{"volunteer_interests", "Volunteer Interests", "Please enter volunteer interests (comma-separated or type 'skip'):"},
}

// scheduleIndex maps field name -> position in Schedule.
var scheduleIndex = func() map[string]int {
	m := make(map[string]int, len(Schedule))
	for i, s := range Schedule {
		m[s.Field] = i
	}
	return m
}()

// DisplayName returns the human-readable name for a schedule field.
func DisplayName(field string) string {
	if i, ok := scheduleIndex[field]; ok {
		return Schedule[i].Display
	}
	return field
}
