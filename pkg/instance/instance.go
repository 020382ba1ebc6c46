package instance

import "github.com/microip/storefront-backend/pkg/env"

const fallbackID = "api-0"

// GetID names this process in logs. MICROIP_INSTANCE_ID wins, then the platform's dyno
// name, then the host name.
func GetID() string {
	return env.First(fallbackID, "MICROIP_INSTANCE_ID", "DYNO", "HOSTNAME")
}
