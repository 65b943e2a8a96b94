package rate

import (
	"strings"

	"github.com/MrEthical07/sessioncore/internal"
)

// Emails are hashed so counter keys never carry the address itself.
func loginUserKey(email string) string {
	return "al:" + internal.HashToken(strings.ToLower(strings.TrimSpace(email)))
}

func loginIPKey(ip string) string {
	return "ali:" + ip
}

func refreshKey(family string) string {
	return "ar:" + family
}
