package oauth

// Providers spell the same profile fields differently; each list is tried in order.
var (
	firstNameKeys = []string{"given_name", "first_name", "firstName", "givenName"}
	lastNameKeys  = []string{"family_name", "last_name", "lastName", "familyName"}
	pictureKeys   = []string{"picture", "picture_url", "pictureUrl", "avatar", "avatar_url", "avatarUrl"}
)

// ProfileData holds the denormalized fields copied onto accounts. Nil means the
// provider did not supply a value.
type ProfileData struct {
	FirstName  *string
	LastName   *string
	PictureURL *string
}

func ParseProfile(profile map[string]any) ProfileData {
	if profile == nil {
		return ProfileData{}
	}
	return ProfileData{
		FirstName:  firstString(profile, firstNameKeys),
		LastName:   firstString(profile, lastNameKeys),
		PictureURL: firstString(profile, pictureKeys),
	}
}

// firstString returns the first non-empty string value among keys.
func firstString(profile map[string]any, keys []string) *string {
	for _, key := range keys {
		if s, ok := profile[key].(string); ok && s != "" {
			return &s
		}
	}
	return nil
}
