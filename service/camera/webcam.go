package camera

import (
	"context"
	"image"
	"os"
	"strconv"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// MatBuffer carries a BGR 8UC3 gocv.Mat.
type MatBuffer struct {
	Mat gocv.Mat
}

func (b *MatBuffer) Clone() model.Buffer {
	return &MatBuffer{Mat: b.Mat.Clone()}
}

func (b *MatBuffer) Close() error {
	return b.Mat.Close()
}

func (b *MatBuffer) Image() (image.Image, error) {
	return b.Mat.ToImage()
}

type webcamService struct {
	params config.CameraParameters
	webcam *gocv.VideoCapture
}

func NewWebcam(cfgSvc config.IService) IService {
	return &webcamService{
		params: cfgSvc.GetCameraParameters(),
	}
}

func (svc *webcamService) Name() string {
	return svc.params.Name
}

func (svc *webcamService) Open(_ context.Context) error {
	var device interface{} = svc.params.Device
	if id, err := strconv.Atoi(svc.params.Device); err == nil {
		device = id
	}

	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		if os.IsPermission(err) {
			return xerrors.Errorf("opening %v: %w", device, ErrPermissionDenied)
		}
		return xerrors.Errorf("opening %v: %v: %w", device, err, ErrNoDevice)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return xerrors.Errorf("opening %v: %w", device, ErrNoDevice)
	}

	if svc.params.Width > 0 && svc.params.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(svc.params.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(svc.params.Height))
	}
	if svc.params.FPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, svc.params.FPS)
	}

	svc.webcam = webcam
	return nil
}

func (svc *webcamService) Read(ctx context.Context) (model.Buffer, int, int, error) {
	if svc.webcam == nil {
		return nil, 0, 0, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	img := gocv.NewMat()
	if ok := svc.webcam.Read(&img); !ok || img.Empty() {
		img.Close() // Crucial to close the image to avoid memory leaks
		return nil, 0, 0, xerrors.New("empty frame read from device")
	}

	return &MatBuffer{Mat: img}, img.Cols(), img.Rows(), nil
}

func (svc *webcamService) Close() error {
	if svc.webcam == nil {
		return nil
	}
	err := svc.webcam.Close()
	svc.webcam = nil
	return err
}
