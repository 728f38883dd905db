package domain

import "fmt"

// Platform is the coarse client-type classification used to key sessions.
// One active session is allowed per user per platform.
type Platform string

const (
	PlatformPC      Platform = "PC"
	PlatformH5      Platform = "H5"
	PlatformAndroid Platform = "Android"
	PlatformIOS     Platform = "IOS"
	PlatformApplet  Platform = "Applet"
)

// Platforms lists every known platform.
func Platforms() []Platform {
	return []Platform{PlatformPC, PlatformH5, PlatformAndroid, PlatformIOS, PlatformApplet}
}

// ParsePlatform converts a string to a Platform.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

func (p Platform) String() string {
	return string(p)
}
