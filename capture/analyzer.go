package capture

// Quality grades how usable a detected frame is for capture.
type Quality int

const (
	QualityPoor Quality = iota
	QualityGood
	QualityExcellent
)

func (q Quality) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityGood:
		return "good"
	default:
		return "poor"
	}
}

// Score is the per-frame presence judgment. It is derived and consumed per
// frame, never stored.
type Score struct {
	Detected bool
	Quality  Quality
}

// Presence heuristic thresholds. These approximate "a hand-sized, skin-toned,
// moderately lit object fills part of the frame"; they are not physically
// principled and downstream behavior depends on them staying exactly as
// deployed.
const (
	skinRatioMin  = 15.0
	skinRatioMax  = 60.0
	brightnessMin = 80.0
	brightnessMax = 200.0

	excellentContrast  = 30.0
	excellentSkinRatio = 25.0
	goodContrast       = 20.0
	goodSkinRatio      = 20.0
)

// Analyze scores one frame for hand presence and capture quality:
// mean brightness over (R+G+B)/3, the share of skin-like pixels, and the
// mean absolute deviation of per-pixel brightness as contrast.
func Analyze(f *Frame) Score {
	if f == nil {
		return Score{}
	}
	total := f.Width * f.Height
	if total == 0 || len(f.Pix) < total*4 {
		return Score{}
	}

	var brightnessSum float64
	skinPixels := 0
	for i := 0; i < total*4; i += 4 {
		r := int(f.Pix[i])
		g := int(f.Pix[i+1])
		b := int(f.Pix[i+2])

		brightnessSum += float64(r+g+b) / 3

		if r > 95 && g > 40 && b > 20 && r > g && r > b && r-g > 15 {
			skinPixels++
		}
	}
	brightness := brightnessSum / float64(total)
	skinRatio := float64(skinPixels) / float64(total) * 100

	var contrastSum float64
	for i := 0; i < total*4; i += 4 {
		pixel := float64(int(f.Pix[i])+int(f.Pix[i+1])+int(f.Pix[i+2])) / 3
		if pixel > brightness {
			contrastSum += pixel - brightness
		} else {
			contrastSum += brightness - pixel
		}
	}
	contrast := contrastSum / float64(total)

	detected := skinRatio > skinRatioMin && skinRatio < skinRatioMax &&
		brightness > brightnessMin && brightness < brightnessMax

	quality := QualityPoor
	if detected {
		switch {
		case contrast > excellentContrast && skinRatio > excellentSkinRatio:
			quality = QualityExcellent
		case contrast > goodContrast && skinRatio > goodSkinRatio:
			quality = QualityGood
		}
	}

	return Score{Detected: detected, Quality: quality}
}
