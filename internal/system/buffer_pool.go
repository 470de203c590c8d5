package system

import (
	"image"
	"sync"

	"github.com/ivlev/template2video/internal/raster"
)

// SurfacePool предоставляет механизмы повторного использования холстов
// для снижения нагрузки на Garbage Collector (GC).
type SurfacePool struct {
	pools map[image.Point]*sync.Pool
	mu    sync.RWMutex
}

func NewSurfacePool() *SurfacePool {
	return &SurfacePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get возвращает холст нужного размера из пула или создает новый.
func (p *SurfacePool) Get(width, height int) *raster.Canvas {
	key := image.Pt(width, height)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return raster.NewCanvas(width, height)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*raster.Canvas)
}

// Put возвращает холст в пул для повторного использования.
func (p *SurfacePool) Put(c *raster.Canvas) {
	if c == nil {
		return
	}
	key := image.Pt(c.Width(), c.Height())
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(c)
	}
}
