package gallery

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/client"
	"go.uber.org/zap"
)

// ImageStatus is the load state of one popup image slot.
type ImageStatus int

const (
	ImageLoading ImageStatus = iota
	ImageLoaded
	ImageFailed
)

func (s ImageStatus) String() string {
	switch s {
	case ImageLoaded:
		return "loaded"
	case ImageFailed:
		return "failed"
	default:
		return "loading"
	}
}

// PopupImage is one slot of a popup's image strip. DataURL is set once loaded.
type PopupImage struct {
	Filename string
	Status   ImageStatus
	DataURL  string
}

// Popup is the marker popup: building details plus one slot per image,
// each fetched independently. A failed fetch only marks its own slot.
type Popup struct {
	Building client.Building

	mu      sync.Mutex
	images  []PopupImage
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

func openPopup(ctx context.Context, api API, logger *zap.Logger, building client.Building) *Popup {
	fetchCtx, cancel := context.WithCancel(ctx)
	popup := &Popup{
		Building: building,
		images:   make([]PopupImage, len(building.Images)),
		cancel:   cancel,
	}
	for index, filename := range building.Images {
		popup.images[index] = PopupImage{Filename: filename, Status: ImageLoading}
		popup.pending.Add(1)
		go func() {
			defer popup.pending.Done()
			payload, err := api.FetchImage(fetchCtx, filename)
			if err != nil {
				logger.Error("failed to load image",
					zap.String("building_id", building.ID),
					zap.String("filename", filename),
					zap.Error(err))
				popup.settle(index, ImageFailed, "")
				return
			}
			popup.settle(index, ImageLoaded, string(payload))
		}()
	}
	return popup
}

func (p *Popup) settle(index int, status ImageStatus, dataURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images[index].Status = status
	p.images[index].DataURL = dataURL
}

// Images returns every slot in building order.
func (p *Popup) Images() []PopupImage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.images)
}

// Wait blocks until every fetch has settled.
func (p *Popup) Wait() {
	p.pending.Wait()
}

func (p *Popup) close() {
	p.cancel()
}

// Carousel starts a carousel over the loaded images at the clicked one.
func (p *Popup) Carousel(filename string) (*Carousel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := -1
	var slides []PopupImage
	for _, image := range p.images {
		if image.Status != ImageLoaded {
			continue
		}
		if image.Filename == filename && start < 0 {
			start = len(slides)
		}
		slides = append(slides, image)
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: image %s is not loaded", ErrInvalidInput, filename)
	}
	return &Carousel{slides: slides, index: start}, nil
}

// Carousel pages through loaded images and wraps at both ends.
type Carousel struct {
	slides []PopupImage
	index  int
}

func (c *Carousel) Current() PopupImage {
	return c.slides[c.index]
}

func (c *Carousel) Index() int {
	return c.index
}

func (c *Carousel) Len() int {
	return len(c.slides)
}

func (c *Carousel) Next() PopupImage {
	c.index = (c.index + 1) % len(c.slides)
	return c.Current()
}

func (c *Carousel) Prev() PopupImage {
	c.index = (c.index - 1 + len(c.slides)) % len(c.slides)
	return c.Current()
}
