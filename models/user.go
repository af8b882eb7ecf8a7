package models

// UserProfile is the account record paired 1:1 with a Firebase Auth identity.
type UserProfile struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	UserType       string `json:"userType"`
	City           string `json:"city"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

// IsLender reports whether the account can list items.
func (u UserProfile) IsLender() bool {
	return u.UserType == UserTypeLender || u.UserType == UserTypeBoth
}

// IsBorrower reports whether the account can request items.
func (u UserProfile) IsBorrower() bool {
	return u.UserType == UserTypeBorrower || u.UserType == UserTypeBoth
}

// ProfileFromDoc builds a UserProfile from a raw document snapshot.
func ProfileFromDoc(uid string, data map[string]interface{}) UserProfile {
	return UserProfile{
		UID:            uid,
		Email:          docString(data, "email"),
		Name:           docString(data, "name"),
		UserType:       docString(data, "userType"),
		City:           docString(data, "city"),
		ProfilePicture: docString(data, "profilePicture"),
		CreatedAt:      docString(data, "createdAt"),
	}
}

// Doc returns the persisted field map for the profile.
func (u UserProfile) Doc() map[string]interface{} {
	doc := map[string]interface{}{
		"email":     u.Email,
		"name":      u.Name,
		"userType":  u.UserType,
		"city":      u.City,
		"createdAt": u.CreatedAt,
	}
	if u.ProfilePicture != "" {
		doc["profilePicture"] = u.ProfilePicture
	}
	return doc
}
