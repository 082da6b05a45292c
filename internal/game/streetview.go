package game

import "fmt"

// StreetViewURL builds the external panorama collaborator's static
// image URL for a location. The image shows the place without
// revealing any of the answer fields.
func StreetViewURL(apiKey string, lat, lng float64, heading int) string {
	return fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/streetview?size=640x400&location=%f,%f&heading=%d&pitch=0&fov=90&key=%s",
		lat, lng, heading, apiKey,
	)
}
