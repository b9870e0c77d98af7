package pairing

import "ukepenger/internal/platform/repositories"

// Device ids are needed before insert because the secret is derived from them.
func newDeviceID() string {
	return repositories.NewID("dev")
}
