package publisher

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/services/publisher/mjpeg"
)

const windowName = "Lane Counter"

// Service sends annotated frames to the MJPEG stream and, when enabled, a local window
type Service struct {
	cfg            *config.Config
	mjpegPublisher *mjpeg.Publisher
	window         *gocv.Window
	maskWindow     *gocv.Window
}

func NewService(cfg *config.Config) *Service {
	s := &Service{
		cfg:            cfg,
		mjpegPublisher: mjpeg.NewPublisher(cfg.SourceID, cfg.MJPEGQuality),
	}
	if cfg.ShowWindow {
		s.window = gocv.NewWindow(windowName)
		s.maskWindow = gocv.NewWindow(windowName + " mask")
	}
	return s
}

// PublishFrame encodes the annotated frame for MJPEG viewers and shows it
// in the window. It reports true when the window asked to quit.
func (s *Service) PublishFrame(frame gocv.Mat, mask gocv.Mat, frameID int64) (quit bool, err error) {
	if err := s.mjpegPublisher.PublishMat(frame, frameID); err != nil {
		return false, err
	}
	if s.window == nil {
		return false, nil
	}

	s.window.IMShow(frame)
	if !mask.Empty() {
		s.maskWindow.IMShow(mask)
	}
	return s.window.WaitKey(1) == 'q', nil
}

func (s *Service) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	s.mjpegPublisher.StreamMJPEGHTTP(w, r)
}

// Latest returns the last published JPEG and its frame id
func (s *Service) Latest() ([]byte, int64) {
	return s.mjpegPublisher.Latest()
}

func (s *Service) Clients() int {
	return s.mjpegPublisher.Clients()
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.mjpegPublisher.Shutdown()
	if s.window != nil {
		s.window.Close()
		s.maskWindow.Close()
		log.Info().Msg("Display windows closed")
	}
	return nil
}
