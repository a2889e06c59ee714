package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

const boundary = "frame"

// Publisher keeps the latest annotated frame as JPEG and fans it out to
// any number of HTTP clients.
type Publisher struct {
	sourceID string
	quality  int

	jpegMutex  sync.RWMutex
	latestJPEG []byte
	frameID    int64

	notifyMutex sync.Mutex
	clients     map[int]chan struct{}
	nextClient  int
}

func NewPublisher(sourceID string, quality int) *Publisher {
	if quality < 1 || quality > 100 {
		quality = 80
	}
	return &Publisher{
		sourceID: sourceID,
		quality:  quality,
		clients:  make(map[int]chan struct{}),
	}
}

// PublishMat encodes mat and wakes every connected client
func (p *Publisher) PublishMat(mat gocv.Mat, frameID int64) error {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	b := buf.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	buf.Close()

	p.publishJPEG(jpegCopy, frameID)
	return nil
}

func (p *Publisher) publishJPEG(jpeg []byte, frameID int64) {
	p.jpegMutex.Lock()
	p.latestJPEG = jpeg
	p.frameID = frameID
	p.jpegMutex.Unlock()

	p.notifyMutex.Lock()
	for _, notify := range p.clients {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
	p.notifyMutex.Unlock()
}

// Latest returns the last encoded frame and its id
func (p *Publisher) Latest() ([]byte, int64) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latestJPEG, p.frameID
}

// Clients is the number of connected MJPEG viewers
func (p *Publisher) Clients() int {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	return len(p.clients)
}

func (p *Publisher) subscribe() (int, chan struct{}) {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	id := p.nextClient
	p.nextClient++
	notify := make(chan struct{}, 1)
	p.clients[id] = notify
	return id, notify
}

func (p *Publisher) unsubscribe(id int) {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	delete(p.clients, id)
}

func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, notify := p.subscribe()
	defer p.unsubscribe(id)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, _ := p.Latest()
	if len(first) == 0 {
		first = p.placeholder()
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	keepaliveTicker := time.NewTicker(2 * time.Second)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}
		if buf, _ := p.Latest(); len(buf) > 0 {
			if !writePart(buf) {
				return
			}
		}
	}
}

func (p *Publisher) placeholder() []byte {
	placeholder := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer placeholder.Close()

	placeholder.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&placeholder, fmt.Sprintf("Source: %s", p.sourceID),
		image.Pt(20, 180), gocv.FontHersheySimplex, 1.0, textColor, 2)
	gocv.PutText(&placeholder, "Waiting for frames...",
		image.Pt(20, 220), gocv.FontHersheySimplex, 0.8, textColor, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, placeholder, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return nil
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func (p *Publisher) Shutdown() {
	log.Info().Int("clients", p.Clients()).Msg("MJPEG Publisher shutting down")
}
