package veo

// ResolutionForSize maps a WxH size string to the resolution class the API
// accepts. Unrecognized sizes map to "" and the parameter is omitted.
func ResolutionForSize(size string) string {
	switch size {
	case "1280x720", "720x1280":
		return "720p"
	case "1920x1080", "1080x1920":
		return "1080p"
	default:
		return ""
	}
}

// AspectRatioForSize maps a WxH size string to its aspect-ratio class.
// Unrecognized sizes map to "" and the parameter is omitted.
func AspectRatioForSize(size string) string {
	switch size {
	case "1280x720", "1920x1080":
		return "16:9"
	case "720x1280", "1080x1920":
		return "9:16"
	default:
		return ""
	}
}
