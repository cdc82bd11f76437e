package inference

import (
	"context"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/camera"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

type yolo5Service struct {
	params config.DetectorParameters
	labels []string

	// WARNING: net is not thread-safe!!!
	mu  sync.Mutex
	net gocv.Net
}

type y5Candidate struct {
	classID    int
	confidence float32
	rect       image.Rectangle
}

// NewYolo5 loads a YOLOv5 ONNX model through the OpenCV DNN module. Any
// failure here is a startup condition: the caller runs without detection.
func NewYolo5(cfgSvc config.IService) (IService, error) {
	params := cfgSvc.GetDetectorParameters()
	if params.InputSize <= 0 {
		params.InputSize = 640
	}

	lgr.Logger.Info("yolo5 detector starting...",
		slog.String("model", params.ModelPath),
		slog.String("openCV", gocv.Version()),
	)

	if _, err := os.Stat(params.ModelPath); err != nil {
		return nil, xerrors.Errorf("no yolo5 model at %s: %w", params.ModelPath, err)
	}

	labels, err := loadLabels(params.CocoNamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		return nil, xerrors.Errorf("error reading yolo5 model %s", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting target: %w", err)
	}

	return &yolo5Service{
		params: params,
		labels: labels,
		net:    net,
	}, nil
}

func (svc *yolo5Service) Infer(_ context.Context, frame model.Frame, policy model.ScalingPolicy) (model.ObservationSet, error) {
	// The model was trained on stretched, non-letterboxed input, so the
	// normalized output maps straight back onto the frame.
	if policy != model.StretchFill {
		return model.ObservationSet{}, xerrors.Errorf("%s: %w", policy, ErrUnsupportedPolicy)
	}

	mat, release, err := toMat(frame.Pixels)
	if err != nil {
		return model.ObservationSet{}, err
	}
	defer release()

	if mat.Empty() {
		return model.ObservationSet{}, xerrors.New("empty frame")
	}

	size := svc.params.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.mu.Lock()
	svc.net.SetInput(blob, "")
	output := svc.net.Forward("")
	svc.mu.Unlock()
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return model.ObservationSet{}, xerrors.Errorf("unexpected DNN output dims: %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	defer reshaped.Close()
	if reshaped.Empty() || reshaped.Rows() == 0 || reshaped.Cols() < 5 {
		return model.ObservationSet{}, xerrors.New("reshape failed or invalid dimensions")
	}

	data, err := reshaped.DataPtrFloat32()
	if err != nil {
		return model.ObservationSet{}, xerrors.Errorf("reading DNN output: %w", err)
	}

	candidates := extractCandidates(data, reshaped.Cols(), len(svc.labels), svc.params.ObjectConfidenceThreshold)
	observations := svc.suppress(candidates, float64(size))

	return model.ObservationSet{
		FrameSeq:     frame.Seq,
		FrameWidth:   frame.Width,
		FrameHeight:  frame.Height,
		Timestamp:    time.Now(),
		Observations: observations,
	}, nil
}

func (svc *yolo5Service) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.net.Close()
}

func (svc *yolo5Service) suppress(candidates []y5Candidate, size float64) []model.Observation {
	if len(candidates) == 0 {
		return []model.Observation{}
	}

	rects := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		rects[i] = c.rect
		scores[i] = c.confidence
	}

	indices := gocv.NMSBoxes(rects, scores, svc.params.ObjectConfidenceThreshold, svc.params.NMSThreshold)

	observations := make([]model.Observation, 0, len(indices))
	for _, idx := range indices {
		c := candidates[idx]
		box := model.BoundingBox{
			X: float64(c.rect.Min.X) / size,
			Y: float64(c.rect.Min.Y) / size,
			W: float64(c.rect.Dx()) / size,
			H: float64(c.rect.Dy()) / size,
		}
		observations = append(observations, model.Observation{
			Label:      svc.labels[c.classID],
			Confidence: float64(c.confidence),
			Box:        box.Clamp(),
		})
	}
	return observations
}

// extractCandidates walks YOLOv5 rows: cx, cy, w, h (input pixels),
// objectness, then one score per class.
func extractCandidates(data []float32, stride, classes int, threshold float32) []y5Candidate {
	candidates := []y5Candidate{}
	if stride < 5 || stride-5 != classes {
		return candidates
	}

	for off := 0; off+stride <= len(data); off += stride {
		row := data[off : off+stride]
		objectConfidence := row[4]
		if objectConfidence < threshold {
			continue
		}

		classID := -1
		classConfidence := float32(0.0)
		for j, score := range row[5:] {
			if score > classConfidence {
				classConfidence = score
				classID = j
			}
		}

		finalConf := objectConfidence * classConfidence
		if classID == -1 || finalConf < threshold {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		x := int(cx - w/2)
		y := int(cy - h/2)
		candidates = append(candidates, y5Candidate{
			classID:    classID,
			confidence: finalConf,
			rect:       image.Rect(x, y, x+int(w), y+int(h)),
		})
	}
	return candidates
}

func toMat(buf model.Buffer) (gocv.Mat, func(), error) {
	switch b := buf.(type) {
	case *camera.MatBuffer:
		return b.Mat, func() {}, nil
	case model.Imager:
		img, err := b.Image()
		if err != nil {
			return gocv.Mat{}, nil, err
		}
		mat, err := gocv.ImageToMatRGB(img)
		if err != nil {
			return gocv.Mat{}, nil, xerrors.Errorf("converting frame: %w", err)
		}
		return mat, func() { mat.Close() }, nil
	}
	return gocv.Mat{}, nil, ErrUnsupportedFrame
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading labels %s: %w", path, err)
	}
	labels := strings.Split(strings.TrimSpace(string(data)), "\n")
	for i := range labels {
		labels[i] = strings.TrimSpace(labels[i])
	}
	return labels, nil
}
