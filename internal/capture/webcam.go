package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/veriface/veriface/internal/config"
)

// Webcam is a Source backed by a V4L/DirectShow camera via gocv.
type Webcam struct {
	device *gocv.VideoCapture
	mat    gocv.Mat
}

// OpenWebcam opens the configured camera device and verifies it actually
// delivers frames. A device that opens but cannot be read is treated as an
// open failure so the caller's retry loop kicks in.
func OpenWebcam(cfg config.CameraConfig) (*Webcam, error) {
	device, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("opening camera device %d: %w", cfg.Device, err)
	}

	device.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	device.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	device.Set(gocv.VideoCaptureFPS, 30)

	w := &Webcam{device: device, mat: gocv.NewMat()}
	if _, err := w.Read(); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("camera device %d opened but delivered no frame: %w", cfg.Device, err)
	}
	return w, nil
}

// WebcamOpener returns an Opener for the configured camera device.
func WebcamOpener(cfg config.CameraConfig) Opener {
	return OpenerFunc(func() (Source, error) {
		return OpenWebcam(cfg)
	})
}

// Read grabs the next frame from the device.
func (w *Webcam) Read() (image.Image, error) {
	if ok := w.device.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, ErrReadFailed
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

// Close releases the device and its frame buffer.
func (w *Webcam) Close() error {
	w.mat.Close()
	return w.device.Close()
}
