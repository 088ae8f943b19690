package models

import "strings"

// OnboardingState is the one-time profile capture gate in front of the wizard.
type OnboardingState string

const (
	OnboardingNeedsAvatarAndName OnboardingState = "needsAvatarAndName"
	OnboardingNeedsAvatarOnly    OnboardingState = "needsAvatarOnly"
	OnboardingComplete           OnboardingState = "complete"
)

// Gender values accepted by the onboarding capture.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// DeriveOnboardingState reads the gate from the persisted record only. Names
// supplied by the identity provider never count.
func DeriveOnboardingState(record *ApplicationRecord) OnboardingState {
	if record == nil || record.PersonalDetails == nil || strings.TrimSpace(record.PersonalDetails.FullName) == "" {
		return OnboardingNeedsAvatarAndName
	}
	if strings.TrimSpace(record.PersonalDetails.Gender) == "" {
		return OnboardingNeedsAvatarOnly
	}
	return OnboardingComplete
}

// RequiresName reports whether the capture must carry a full name.
func (s OnboardingState) RequiresName() bool {
	return s == OnboardingNeedsAvatarAndName
}
