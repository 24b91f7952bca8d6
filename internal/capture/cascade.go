package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Cascade is a Locator backed by an OpenCV Haar cascade classifier.
type Cascade struct {
	classifier gocv.CascadeClassifier
}

// LoadCascade loads a Haar cascade XML file. An unloadable cascade is a
// configuration error, fatal at startup.
func LoadCascade(path string) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		_ = classifier.Close()
		return nil, fmt.Errorf("loading face cascade from %s", path)
	}
	return &Cascade{classifier: classifier}, nil
}

// Detect runs the cascade over the grayscale frame with one strategy's
// parameters and returns candidate face boxes.
func (c *Cascade) Detect(img image.Image, p DetectParams) []image.Rectangle {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	if p.Equalize {
		eq := gocv.NewMat()
		defer eq.Close()
		gocv.EqualizeHist(gray, &eq)
		return c.detectMultiScale(eq, p)
	}
	return c.detectMultiScale(gray, p)
}

func (c *Cascade) detectMultiScale(gray gocv.Mat, p DetectParams) []image.Rectangle {
	minSize := image.Pt(p.MinSize, p.MinSize)
	return c.classifier.DetectMultiScaleWithParams(
		gray, p.ScaleFactor, p.MinNeighbors, 0, minSize, image.Pt(0, 0),
	)
}

// Close releases the cascade classifier.
func (c *Cascade) Close() error {
	return c.classifier.Close()
}
