// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"context"
	"fmt"
	"sync"

	"mtf-trader/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// Engine provides parallel indicator calculation using a worker pool.
type Engine struct {
	workers    int
	indicators map[string]Indicator
	mu         sync.RWMutex
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:    workers,
		indicators: make(map[string]Indicator),
	}
}

// Register registers a single-value indicator.
func (e *Engine) Register(ind Indicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicators[ind.Name()] = ind
}

// Calculate calculates a specific indicator by name.
func (e *Engine) Calculate(ctx context.Context, name string, candles []models.Candle) ([]float64, error) {
	e.mu.RLock()
	ind, ok := e.indicators[name]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("indicator %s not found", name)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return ind.Calculate(candles)
	}
}

// CalculateAll calculates all registered indicators in parallel.
func (e *Engine) CalculateAll(ctx context.Context, candles []models.Candle) (map[string][]float64, error) {
	e.mu.RLock()
	indicators := make([]Indicator, 0, len(e.indicators))
	for _, ind := range e.indicators {
		indicators = append(indicators, ind)
	}
	e.mu.RUnlock()

	results := make(map[string][]float64)
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan Indicator, len(indicators))

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ind := range work {
				select {
				case <-ctx.Done():
					return
				default:
					values, err := ind.Calculate(candles)
					if err == nil {
						mu.Lock()
						results[ind.Name()] = values
						mu.Unlock()
					}
				}
			}
		}()
	}

	for _, ind := range indicators {
		work <- ind
	}
	close(work)

	wg.Wait()

	return results, nil
}

// ListIndicators returns the names of all registered indicators.
func (e *Engine) ListIndicators() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.indicators))
	for name := range e.indicators {
		names = append(names, name)
	}
	return names
}
