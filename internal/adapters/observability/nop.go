package observability

import (
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Nop discards everything.
type Nop struct{}

func (Nop) LogInfo(string, ...ports.Field) {}
func (Nop) LogWarn(string, ...ports.Field) {}
func (Nop) LogError(string, error, ...ports.Field) {}
func (Nop) LogCritical(string, error, ...ports.Field) {}
func (Nop) IncCounter(string, float64) {}
func (Nop) ObserveLatency(string, float64) {}
func (Nop) SetGauge(string, float64) {}
func (Nop) RecordDLQ(string, domain.Document, error) {}

var _ ports.Observability = Nop{}
