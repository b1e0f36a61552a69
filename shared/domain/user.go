package domain

// User is the authenticated identity taken from the access token.
// DisplayName and AvatarURL are optional profile claims.
type User struct {
	Id          UserId
	DisplayName string
	AvatarURL   string
}

// Profile returns the profile carried by the identity itself, or nil if
// the token had no profile claims.
func (u *User) Profile() *Profile {
	if u == nil || (u.DisplayName == "" && u.AvatarURL == "") {
		return nil
	}
	return &Profile{DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// Profile is what the composer shows at the top of the form.
type Profile struct {
	DisplayName string `json:"user_name"`
	AvatarURL   string `json:"image"`
}
