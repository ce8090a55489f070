package utils

// MaskAPIKey masks a credential for display, keeping four characters at
// each end of anything longer than eight.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
