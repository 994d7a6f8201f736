package ff

import (
	"fmt"
	"strings"
)

// CameraMovement is the camera motion of a shot. The string values are
// emitted verbatim into prompts.
type CameraMovement string

const (
	CameraFixed        CameraMovement = "Fixed"
	CameraPanLeft      CameraMovement = "Pan Left"
	CameraPanRight     CameraMovement = "Pan Right"
	CameraZoomIn       CameraMovement = "Zoom In"
	CameraZoomOut      CameraMovement = "Zoom Out"
	CameraTrackingShot CameraMovement = "Tracking Shot"
	CameraOrbit        CameraMovement = "Orbit"
	CameraAerialDrone  CameraMovement = "Aerial/Drone"
	CameraHandheld     CameraMovement = "Handheld"
	CameraDollyZoom    CameraMovement = "Dolly Zoom"
	CameraCraneShot    CameraMovement = "Crane Shot"
	CameraFollowShot   CameraMovement = "Follow Shot"
)

// CameraMovements lists every camera movement in display order.
var CameraMovements = []CameraMovement{
	CameraFixed, CameraPanLeft, CameraPanRight, CameraZoomIn, CameraZoomOut, CameraTrackingShot,
	CameraOrbit, CameraAerialDrone, CameraHandheld, CameraDollyZoom, CameraCraneShot, CameraFollowShot,
}

var cameraLabels = map[CameraMovement]string{
	CameraFixed:        "Fixed 固定",
	CameraPanLeft:      "Pan Left 左搖",
	CameraPanRight:     "Pan Right 右搖",
	CameraZoomIn:       "Zoom In 推近",
	CameraZoomOut:      "Zoom Out 拉遠",
	CameraTrackingShot: "Tracking 跟拍",
	CameraOrbit:        "Orbit 環繞",
	CameraAerialDrone:  "Aerial 空拍",
	CameraHandheld:     "Handheld 手持",
	CameraDollyZoom:    "Dolly Zoom 推軌變焦",
	CameraCraneShot:    "Crane 搖臂",
	CameraFollowShot:   "Follow 跟隨",
}

func (c CameraMovement) Valid() bool {
	_, ok := cameraLabels[c]
	return ok
}

// Label returns the bilingual display label.
func (c CameraMovement) Label() string {
	if l, ok := cameraLabels[c]; ok {
		return l
	}
	return string(c)
}

// Style is the visual style of a shot.
type Style string

const (
	StylePhotorealistic Style = "Photorealistic"
	StyleCinematic      Style = "Cinematic"
	StyleAnime          Style = "Anime"
	StyleCyberpunk      Style = "Cyberpunk"
	StyleWatercolor     Style = "Watercolor"
	StyleFilmNoir       Style = "Film Noir"
	StyleIllustration   Style = "Illustration"
	Style3DRender       Style = "3D Render"
)

var Styles = []Style{
	StylePhotorealistic, StyleCinematic, StyleAnime, StyleCyberpunk,
	StyleWatercolor, StyleFilmNoir, StyleIllustration, Style3DRender,
}

func (s Style) Valid() bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}

// Mood is the lighting/atmosphere of a shot.
type Mood string

const (
	MoodWarmGoldenHour Mood = "Warm/Golden Hour"
	MoodMoodyDramatic  Mood = "Moody/Dramatic"
	MoodBrightCheerful Mood = "Bright/Cheerful"
	MoodColdBlueTone   Mood = "Cold/Blue Tone"
	MoodNeonGlow       Mood = "Neon/Glow"
	MoodSoftDreamy     Mood = "Soft/Dreamy"
	MoodDarkHorror     Mood = "Dark/Horror"
	MoodVintageRetro   Mood = "Vintage/Retro"
)

var Moods = []Mood{
	MoodWarmGoldenHour, MoodMoodyDramatic, MoodBrightCheerful, MoodColdBlueTone,
	MoodNeonGlow, MoodSoftDreamy, MoodDarkHorror, MoodVintageRetro,
}

func (m Mood) Valid() bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// ParseCameraMovement accepts the exact value or its case-insensitive form.
func ParseCameraMovement(s string) (CameraMovement, error) {
	for _, v := range CameraMovements {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "cameraMovement", Message: fmt.Sprintf("unknown camera movement %q", s)}
}

func ParseStyle(s string) (Style, error) {
	for _, v := range Styles {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "style", Message: fmt.Sprintf("unknown style %q", s)}
}

func ParseMood(s string) (Mood, error) {
	for _, v := range Moods {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "mood", Message: fmt.Sprintf("unknown mood %q", s)}
}
