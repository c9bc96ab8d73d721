package domain

// VoicePart is a member's vocal section.
type VoicePart string

const (
	VoiceSoprano    VoicePart = "SOPRANO"
	VoiceContralto  VoicePart = "CONTRALTO"
	VoiceTenor      VoicePart = "TENOR"
	VoiceBass       VoicePart = "BASS"
	VoiceUnassigned VoicePart = "UNASSIGNED"
)

// Gender is a member's registered gender.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Member is an enrolled singer. ChoirID is a loose reference: the member is
// kept even if the choir cannot be resolved, and lookups label it unknown.
type Member struct {
	ID        MemberID  `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	ChoirID   ChoirID   `json:"choirId"`
	VoicePart VoicePart `json:"voicePart"`
	Gender    Gender    `json:"gender"`
}

// FullName returns the member's display name.
func (m Member) FullName() string {
	return NormalizeHumanName(m.FirstName + " " + m.LastName)
}

// ValidVoicePart reports whether v is one of the fixed voice parts.
func ValidVoicePart(v VoicePart) bool {
	switch v {
	case VoiceSoprano, VoiceContralto, VoiceTenor, VoiceBass, VoiceUnassigned:
		return true
	}
	return false
}

// ValidGender reports whether g is one of the fixed genders.
func ValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale
}
