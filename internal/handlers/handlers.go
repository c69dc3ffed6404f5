package handlers

import (
	"time"

	"doggygallery/internal/filesystem"
	"doggygallery/internal/media"
	"doggygallery/internal/startup"
	"doggygallery/internal/streaming"
	"doggygallery/web"
)

// Handlers serves the gallery pages, media and JSON API.
type Handlers struct {
	config    *startup.Config
	resolver  *filesystem.Resolver
	scanner   *media.Scanner
	thumbGen  *media.ThumbnailGenerator
	delivery  *streaming.Delivery
	pages     *web.Pages
	startedAt time.Time
}

// New wires the handlers to the shared components.
func New(config *startup.Config, resolver *filesystem.Resolver, scanner *media.Scanner, thumbGen *media.ThumbnailGenerator, delivery *streaming.Delivery, pages *web.Pages) *Handlers {
	return &Handlers{
		config:    config,
		resolver:  resolver,
		scanner:   scanner,
		thumbGen:  thumbGen,
		delivery:  delivery,
		pages:     pages,
		startedAt: time.Now(),
	}
}
