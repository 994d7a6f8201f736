package gateway

// Model is an image generation model accepted by the gateway.
type Model string

const (
	ModelFlashImage Model = "gemini-2.5-flash-image"
	ModelProImage   Model = "gemini-3-pro-image-preview"

	DefaultModel = ModelFlashImage
)

// AspectRatio is an output aspect ratio accepted by the gateway.
type AspectRatio string

const (
	Ratio1x1  AspectRatio = "1:1"
	Ratio3x2  AspectRatio = "3:2"
	Ratio2x3  AspectRatio = "2:3"
	Ratio3x4  AspectRatio = "3:4"
	Ratio4x3  AspectRatio = "4:3"
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"

	DefaultAspectRatio = Ratio16x9
)

// DefaultCreditCost is charged for models missing from the cost table.
const DefaultCreditCost = 2

var modelCosts = map[Model]int{
	ModelFlashImage: 2,
	ModelProImage:   10,
}

var models = []Model{ModelFlashImage, ModelProImage}

var aspectRatios = []AspectRatio{Ratio16x9, Ratio9x16, Ratio1x1, Ratio4x3, Ratio3x4, Ratio3x2, Ratio2x3}

// Models lists the accepted image models.
func Models() []Model { return append([]Model(nil), models...) }

// AspectRatios lists the accepted aspect ratios.
func AspectRatios() []AspectRatio { return append([]AspectRatio(nil), aspectRatios...) }

// CreditCost returns the credits charged for one successful generation with model.
func CreditCost(model Model) int {
	if c, ok := modelCosts[model]; ok {
		return c
	}
	return DefaultCreditCost
}

func (m Model) Valid() bool {
	_, ok := modelCosts[m]
	return ok
}

func (a AspectRatio) Valid() bool {
	for _, r := range aspectRatios {
		if r == a {
			return true
		}
	}
	return false
}
